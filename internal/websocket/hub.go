package websocket

import (
	"log/slog"
	"sync"
)

// Hub maintains the set of live connections keyed by connection id. Each
// client's buffered send channel preserves FIFO delivery per connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ConnID] = client
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("connection registered", "conn", client.ConnID, "total", total)
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ConnID]; ok {
		delete(h.clients, client.ConnID)
		close(client.Send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("connection unregistered", "conn", client.ConnID, "total", total)
}

// SendTo queues a payload for one connection. Returns false when the
// connection is unknown or its send buffer is full (slow consumer). The
// read lock is held across the channel send: Unregister closes Send under
// the write lock, so a registered client's channel cannot close mid-send.
func (h *Hub) SendTo(connID string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	if !ok {
		return false
	}

	select {
	case client.Send <- payload:
		return true
	default:
		h.logger.Warn("send buffer full, dropping event", "conn", connID)
		return false
	}
}

// BroadcastAll queues a payload for every live connection.
func (h *Hub) BroadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID, client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("send buffer full, dropping broadcast", "conn", connID)
		}
	}
}
