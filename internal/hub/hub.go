package hub

import (
	"encoding/json"
	"sync"

	"github.com/argus-protocol/argus/internal/engine/analytics"
	"github.com/argus-protocol/argus/internal/monitoring"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Guards clients and running; both are read from outside the loop
	mu sync.RWMutex

	// Running state
	running bool
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
// This should be called in a goroutine
func (h *Hub) Run() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			monitoring.Logf("[%s] client %s connected (%d total)", h.name, client.id, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			monitoring.Logf("[%s] client %s disconnected (%d remaining)", h.name, client.id, count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					// Message queued successfully
				default:
					// Client's buffer is full - they're too slow.
					// Close and remove them.
					close(client.send)
					delete(h.clients, client)
					monitoring.Logf("[%s] dropped slow client %s", h.name, client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		// Broadcast channel full - drop message
		monitoring.Logf("[%s] broadcast channel full, dropping message", h.name)
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// PublishSnapshot broadcasts an analytics snapshot to every client. This is
// the pipeline sink hook; encoding failures are logged, not returned, so the
// pipeline never stalls on a bad client.
func (h *Hub) PublishSnapshot(s *analytics.Snapshot) {
	if s == nil {
		return
	}
	if err := h.BroadcastJSON(s); err != nil {
		monitoring.Logf("[%s] failed to encode snapshot for frame %d: %v", h.name, s.Frame, err)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
