package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"yapa-server/config"
	"yapa-server/server"
)

// EmbedHandler renders the HTML snippet that hosts the animation.
type EmbedHandler struct {
	manager   *server.ChannelManager
	publicURL string
}

func NewEmbedHandler(manager *server.ChannelManager, publicURL string) *EmbedHandler {
	return &EmbedHandler{manager: manager, publicURL: publicURL}
}

// Routes registers embed routes
func (h *EmbedHandler) Routes(r chi.Router) {
	r.Get("/embed", h.Get)
}

// Get renders the snippet for the default config, or for a channel's config
// with ?channel=. ?base_url= overrides the public URL.
func (h *EmbedHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.manager.Config()
	if id := r.URL.Query().Get("channel"); id != "" {
		ch, ok := h.manager.GetChannel(id)
		if !ok {
			errorJSON(w, http.StatusNotFound, server.ErrChannelNotFound.Error())
			return
		}
		if info, ok := ch.Info(); ok {
			cfg = info.Config
		}
	}

	base := r.URL.Query().Get("base_url")
	if base == "" {
		base = h.publicURL
	}
	if base == "" {
		base = requestBaseURL(r)
	}

	snippet, err := config.EmbedSnippet(cfg, base)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(snippet))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
