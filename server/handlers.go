package server

import (
	"encoding/json"
	"fmt"

	"yapa-server/network_state"
)

// handleClientMessage processes incoming JSON messages from a specific client.
func (s *NetworkStateServer) handleClientMessage(client *WebSocketClient, message []byte) {
	var msg Envelope
	if err := json.Unmarshal(message, &msg); err != nil {
		client.logger.Warn("unmarshal incoming message", "error", err)
		s.sendError(client, "malformed message")
		return
	}

	switch msg.Type {
	case MsgViewport:
		var data viewportData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.sendError(client, "malformed viewport")
			return
		}
		s.processViewport(client, data)
	case MsgVisibility:
		var data visibilityData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.sendError(client, "malformed visibility")
			return
		}
		client.channel.SetVisibility(client.id, data.Visible)
	case MsgSetConfig:
		s.processConfig(client, msg.Data)
	default:
		client.logger.Warn("unknown message type", "type", msg.Type)
		s.sendError(client, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// processViewport resets the channel on a new drawing area.
func (s *NetworkStateServer) processViewport(client *WebSocketClient, data viewportData) {
	vp, err := viewportFrom(data)
	if err != nil {
		s.sendError(client, err.Error())
		return
	}
	client.channel.SetViewport(vp)
}

// processConfig overlays a partial config onto the channel's snapshot.
func (s *NetworkStateServer) processConfig(client *WebSocketClient, data json.RawMessage) {
	_, reset, err := client.channel.ApplyOverlay(data)
	if err != nil {
		s.sendError(client, err.Error())
		return
	}
	client.logger.Info("channel config updated by client", "reset", reset)
}

func (s *NetworkStateServer) sendError(client *WebSocketClient, text string) {
	payload, err := EncodeMessage(MsgError, ErrorNotice{Message: text})
	if err != nil {
		return
	}
	client.sendDirect(payload)
}

// viewportFrom rejects sizes that cannot be drawn on.
func viewportFrom(data viewportData) (network_state.Viewport, error) {
	vp := network_state.Viewport{Width: data.Width, Height: data.Height, PixelRatio: data.PixelRatio}
	if err := vp.Validate(); err != nil {
		return network_state.Viewport{}, err
	}
	return vp, nil
}
