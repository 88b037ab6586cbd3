package models

import (
	"encoding/json"
)

// SocketEvent is the frame exchanged in both directions over a connection.
type SocketEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorPayload struct {
	Event   string   `json:"event,omitempty"`
	Message string   `json:"message"`
	Issues  []string `json:"issues,omitempty"`
}
