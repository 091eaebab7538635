package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// NetworkStateServer upgrades HTTP requests to websocket subscribers.
type NetworkStateServer struct {
	upgrader websocket.Upgrader
	manager  *ChannelManager
	logger   *slog.Logger
}

// NewNetworkStateServer creates a server backed by manager. checkOrigin may
// be nil to accept every origin, which is what cross-site embeds need.
func NewNetworkStateServer(manager *ChannelManager, logger *slog.Logger, checkOrigin func(*http.Request) bool) *NetworkStateServer {
	if logger == nil {
		logger = slog.Default()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &NetworkStateServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		manager: manager,
		logger:  logger,
	}
}

// Manager returns the channel manager.
func (s *NetworkStateServer) Manager() *ChannelManager { return s.manager }

// ConnectedClients is the number of attached subscribers.
func (s *NetworkStateServer) ConnectedClients() int { return s.manager.SubscriberCount() }

// HandleConnections serves /ws?channel=<id>. Optional width, height and
// pixel_ratio query parameters set the viewport without waiting for the
// first viewport message.
func (s *NetworkStateServer) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sessionID := uuid.NewString()
	client := NewWebSocketClient(conn, sessionID, s.logger)

	ch, err := s.manager.Attach(r.URL.Query().Get("channel"), client)
	if err != nil {
		s.logger.Error("attach subscriber", "session", sessionID, "error", err)
		conn.Close()
		return
	}
	client.channel = ch

	info, _ := ch.Info()
	assigned, err := EncodeMessage(MsgSessionAssigned, SessionAssigned{
		SessionID: sessionID,
		ChannelID: ch.ID,
		Config:    info.Config,
	})
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, assigned)
	}
	if err != nil {
		s.logger.Warn("send session_assigned, disconnecting", "session", sessionID, "error", err)
		s.manager.Detach(ch, sessionID)
		conn.Close()
		return
	}
	s.logger.Info("session assigned", "session", sessionID, "channel", ch.ID, "remote", conn.RemoteAddr().String())

	if data, ok := viewportQuery(r); ok {
		if vp, err := viewportFrom(data); err == nil {
			ch.SetViewport(vp)
		}
	}

	go client.WritePump()
	go client.ReadPump(s)
}

// unregisterClient detaches a client from its channel.
func (s *NetworkStateServer) unregisterClient(client *WebSocketClient) {
	if client.channel == nil {
		return
	}
	s.manager.Detach(client.channel, client.id)
}

func viewportQuery(r *http.Request) (viewportData, bool) {
	q := r.URL.Query()
	width, errW := strconv.ParseFloat(q.Get("width"), 64)
	height, errH := strconv.ParseFloat(q.Get("height"), 64)
	if errW != nil || errH != nil {
		return viewportData{}, false
	}
	ratio, err := strconv.ParseFloat(q.Get("pixel_ratio"), 64)
	if err != nil {
		ratio = 1
	}
	return viewportData{Width: width, Height: height, PixelRatio: ratio}, true
}
