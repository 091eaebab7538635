package server

import (
	"encoding/json"

	"yapa-server/config"
	"yapa-server/network_state"
)

// Message types sent to subscribers.
const (
	MsgSessionAssigned = "session_assigned"
	MsgFrame           = "frame"
	MsgConfig          = "config"
	MsgReset           = "reset"
	MsgError           = "error"
)

// Message types received from websocket clients.
const (
	MsgViewport   = "viewport"
	MsgVisibility = "visibility"
	MsgSetConfig  = "config"
)

// Envelope is the wire shape of every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SessionAssigned is the first message a websocket client receives.
type SessionAssigned struct {
	SessionID string         `json:"session_id"`
	ChannelID string         `json:"channel_id"`
	Config    *config.Config `json:"config"`
}

// ResetNotice announces a new node population.
type ResetNotice struct {
	Epoch    uint64                 `json:"epoch"`
	Reason   string                 `json:"reason"`
	Viewport network_state.Viewport `json:"viewport"`
}

// ErrorNotice reports a rejected client message.
type ErrorNotice struct {
	Message string `json:"message"`
}

type viewportData struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PixelRatio float64 `json:"pixel_ratio"`
}

type visibilityData struct {
	Visible bool `json:"visible"`
}

// EncodeMessage wraps data in an envelope.
func EncodeMessage(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Data: raw})
}
