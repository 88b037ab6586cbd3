package realtime

import (
	"io"

	"github.com/google/uuid"
)

type ClientState int

const (
	StateConnecting ClientState = iota
	StateAuthenticated
	StateDisconnected
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Client is one live connection. Send is closed by the hub when the client
// is unregistered.
type Client struct {
	ID       uuid.UUID
	Identity Identity
	Send     chan []byte

	conn  io.Closer
	state ClientState
}

func NewClient(identity Identity, conn io.Closer, buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{
		ID:       uuid.New(),
		Identity: identity,
		Send:     make(chan []byte, buffer),
		conn:     conn,
		state:    StateConnecting,
	}
}
