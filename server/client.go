package server

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WebSocket heartbeat settings to detect disconnected clients
	PING_INTERVAL = 10 * time.Second // Frequency of sending ping messages
	PONG_WAIT     = 60 * time.Second // Time to wait for a pong response before considering client disconnected
	WRITE_WAIT    = 10 * time.Second // Deadline for a single frame write

	// Outgoing messages buffered per client before frames are dropped
	OUTBOX_SIZE = 64
	// Largest client message accepted
	MAX_MESSAGE_SIZE = 64 * 1024
)

// WebSocketClient is one browser connection subscribed to a channel.
type WebSocketClient struct {
	conn    *websocket.Conn // The raw WebSocket connection
	send    chan []byte     // Outgoing messages, filled by the channel loop
	id      string          // Session id
	channel *Channel        // Channel this client is attached to
	done    chan struct{}   // Closed by ReadPump to stop WritePump
	logger  *slog.Logger
}

// NewWebSocketClient creates and returns a new WebSocketClient instance.
func NewWebSocketClient(conn *websocket.Conn, id string, logger *slog.Logger) *WebSocketClient {
	return &WebSocketClient{
		conn:   conn,
		send:   make(chan []byte, OUTBOX_SIZE),
		id:     id,
		done:   make(chan struct{}),
		logger: logger.With("session", id),
	}
}

// ID implements Subscriber.
func (c *WebSocketClient) ID() string { return c.id }

// Outbox implements Subscriber. It is never closed, so a channel loop may
// send to it at any time.
func (c *WebSocketClient) Outbox() chan<- []byte { return c.send }

// ReadPump continuously reads messages from the WebSocket connection.
// It handles disconnection detection and signals the WritePump to terminate.
func (c *WebSocketClient) ReadPump(server *NetworkStateServer) {
	defer func() {
		server.unregisterClient(c)
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MAX_MESSAGE_SIZE)
	c.conn.SetReadDeadline(time.Now().Add(PONG_WAIT))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PONG_WAIT))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("unexpected websocket close", "error", err)
			} else {
				c.logger.Debug("websocket read ended", "error", err)
			}
			break
		}
		server.handleClientMessage(c, message)
	}
}

// WritePump sends queued messages and periodic pings until ReadPump exits.
func (c *WebSocketClient) WritePump() {
	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("error sending message", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("error sending ping", "error", err)
				return
			}
		case <-c.done:
			err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				c.logger.Debug("error sending final close message", "error", err)
			}
			return
		}
	}
}

// sendDirect queues a message for this client only.
func (c *WebSocketClient) sendDirect(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn("send buffer full, message dropped")
		return false
	}
}
