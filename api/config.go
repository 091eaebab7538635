package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yapa-server/config"
	"yapa-server/server"
)

// maxConfigBody bounds PUT bodies.
const maxConfigBody = 64 * 1024

// ConfigHandler reads and swaps the animation config.
type ConfigHandler struct {
	manager *server.ChannelManager
}

func NewConfigHandler(manager *server.ChannelManager) *ConfigHandler {
	return &ConfigHandler{manager: manager}
}

// Routes registers config routes
func (h *ConfigHandler) Routes(r chi.Router) {
	r.Get("/config", h.Get)
	r.Put("/config", h.Update)
}

type configUpdateResponse struct {
	Config *config.Config `json:"config"`
	Resets int            `json:"resets"`
}

// Get returns the default config as JSON, or as toml/yaml with ?format=.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.manager.Config()
	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, cfg)
		return
	}

	data, err := config.Encode(cfg, format)
	if errors.Is(err, config.ErrUnknownFormat) {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch format {
	case "toml":
		w.Header().Set("Content-Type", "application/toml")
	default:
		w.Header().Set("Content-Type", "application/yaml")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Update overlays the request body on the current config, validates it and
// swaps it into every channel.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, resets, err := h.manager.ApplyOverlay(body)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, configUpdateResponse{Config: cfg, Resets: resets})
}

// readBody reads at most maxConfigBody bytes of the request.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxConfigBody))
}
