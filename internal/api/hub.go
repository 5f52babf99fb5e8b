// Package api exposes the engine to the editor UI over HTTP and WebSocket.
package api

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Hub fans engine updates out to connected WebSocket clients.
type Hub struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan []byte)}
}

// Subscribe registers a client and returns its id and outbound channel.
func (h *Hub) Subscribe() (string, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan []byte, 32)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast delivers payload to every subscriber without blocking; slow
// clients drop updates rather than stall the pump.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- payload:
		default:
			zlog.Debug().Msgf("api: dropping update for slow subscriber %s", id)
		}
	}
}

// SubscriberCount returns the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
