package sse

import (
	"sync"

	"github.com/google/uuid"

	"github.com/campus-share/campus-share/internal/domain/notification"
)

// Hub manages live stream clients. A client subscribes to its own user
// feed and optionally to rooms, one per transaction it follows.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notification.StreamClient
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*notification.StreamClient),
	}
}

func (h *Hub) Register(client *notification.StreamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToUser(userID uuid.UUID, message *notification.StreamMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			trySend(c, message)
		}
	}
}

func (h *Hub) BroadcastToRoom(room string, message *notification.StreamMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		for _, r := range c.Rooms {
			if r == room {
				trySend(c, message)
				break
			}
		}
	}
}

func (h *Hub) SendToClient(clientID string, message *notification.StreamMessage) error {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c == nil {
		return notification.ErrClientNotFound
	}
	if !trySend(c, message) {
		return notification.ErrChannelFull
	}
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// trySend drops the message when the client's buffer is full. Slow
// consumers miss events rather than stalling the hub.
func trySend(c *notification.StreamClient, msg *notification.StreamMessage) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
