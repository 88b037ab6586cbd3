package realtime

import (
	"encoding/json"
	"sync"

	"emrSocket/internal/errs"
	"emrSocket/internal/logger"
	socketModels "emrSocket/internal/models/socket"
)

// Hub tracks the live connections of this instance and their room
// memberships. Membership is derived from the client identity at Register
// and dropped as a whole at Unregister.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		log:     log.With("component", "RealtimeHub"),
	}
}

// Register moves a connecting client to the authenticated state and joins
// it to its hospital, role and user rooms.
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.state != StateConnecting {
		return errs.ErrClientNotNew
	}

	h.clients[client] = struct{}{}
	for _, room := range client.Identity.Rooms() {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Client]struct{})
			h.rooms[room] = members
		}
		members[client] = struct{}{}
	}
	client.state = StateAuthenticated

	h.log.Debug("client registered",
		"clientID", client.ID,
		"userID", client.Identity.UserID,
		"hospitalID", client.Identity.HospitalID,
		"role", client.Identity.Role,
	)
	return nil
}

// Unregister removes the client from every room and closes its Send channel.
// It reports true only for the call that performed the transition to
// disconnected.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.state != StateAuthenticated {
		if client.state == StateConnecting {
			client.state = StateDisconnected
		}
		return false
	}

	for _, room := range client.Identity.Rooms() {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.clients, client)
	close(client.Send)
	client.state = StateDisconnected

	h.log.Debug("client unregistered", "clientID", client.ID, "userID", client.Identity.UserID)
	return true
}

// Deliver writes the envelope to every member of its room, honouring the
// optional hospital scope. It returns how many clients the frame was queued for.
func (h *Hub) Deliver(env Envelope) int {
	frame, err := json.Marshal(socketModels.SocketEvent{Event: env.Event, Payload: env.Payload})
	if err != nil {
		h.log.Warn("failed to marshal frame", "event", env.Event, "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[env.Room]
	if !ok {
		return 0
	}

	queued := 0
	for client := range members {
		if env.HospitalScope != 0 && client.Identity.HospitalID != env.HospitalScope {
			continue
		}
		if h.enqueue(client, frame) {
			queued++
		}
	}
	return queued
}

// SendTo queues a frame for a single registered client.
func (h *Hub) SendTo(client *Client, event socketModels.SocketEvent) bool {
	frame, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("failed to marshal frame", "event", event.Event, "error", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client.state != StateAuthenticated {
		return false
	}
	return h.enqueue(client, frame)
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(client *Client, frame []byte) bool {
	select {
	case client.Send <- frame:
		return true
	default:
		h.log.Warn("dropping frame; send buffer full", "clientID", client.ID, "userID", client.Identity.UserID)
		return false
	}
}

// CloseAll closes the transport of every registered client. Each read loop
// then runs its normal disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	closers := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		closers = append(closers, client)
	}
	h.mu.RUnlock()

	for _, client := range closers {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil {
			h.log.Debug("error closing client transport", "clientID", client.ID, "error", err)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// InRoom reports whether client is currently a member of room.
func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][client]
	return ok
}

func (h *Hub) State(client *Client) ClientState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.state
}
