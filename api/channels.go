package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yapa-server/server"
)

// ChannelHandler exposes running channels.
type ChannelHandler struct {
	manager *server.ChannelManager
}

func NewChannelHandler(manager *server.ChannelManager) *ChannelHandler {
	return &ChannelHandler{manager: manager}
}

// Routes registers channel routes
func (h *ChannelHandler) Routes(r chi.Router) {
	r.Get("/channels", h.List)
	r.Route("/channels/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/frame", h.Frame)
		r.Put("/config", h.UpdateConfig)
	})
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, h.manager.Channels()))
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	ch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	info, ok := ch.Info()
	if !ok {
		errorJSON(w, http.StatusNotFound, server.ErrChannelClosed.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Frame returns the channel's current render snapshot.
func (h *ChannelHandler) Frame(w http.ResponseWriter, r *http.Request) {
	ch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	frame, ok := ch.Frame()
	if !ok {
		errorJSON(w, http.StatusNotFound, server.ErrChannelClosed.Error())
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// UpdateConfig overlays the request body on one channel's config only.
func (h *ChannelHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	ch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, reset, err := ch.ApplyOverlay(body)
	switch {
	case errors.Is(err, server.ErrChannelClosed):
		errorJSON(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	resets := 0
	if reset {
		resets = 1
	}
	writeJSON(w, http.StatusOK, configUpdateResponse{Config: cfg, Resets: resets})
}

func (h *ChannelHandler) lookup(w http.ResponseWriter, r *http.Request) (*server.Channel, bool) {
	ch, ok := h.manager.GetChannel(chi.URLParam(r, "id"))
	if !ok {
		errorJSON(w, http.StatusNotFound, server.ErrChannelNotFound.Error())
		return nil, false
	}
	return ch, true
}
