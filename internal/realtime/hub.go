package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"table-cache-api/internal/logging"
)

// Client represents a single websocket client connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	// Send queues message for delivery and reports whether it was accepted.
	// It must not block.
	Send(message []byte) bool
	Close()
}

// Hub maintains subscriber connections and fans cache events out to them.
type Hub struct {
	mu            sync.RWMutex
	subscribers   map[string]map[Client]struct{}
	log           *slog.Logger
	droppedEvents atomic.Uint64
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[Client]struct{}),
		log:         log,
	}
}

// Register adds a client under a subscriber ID.
func (h *Hub) Register(subscriberID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[subscriberID]; !ok {
		h.subscribers[subscriberID] = make(map[Client]struct{})
	}
	h.subscribers[subscriberID][client] = struct{}{}
}

// Unregister removes a client; if the subscriber has no more clients, cleans up map.
func (h *Hub) Unregister(subscriberID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.subscribers[subscriberID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscribers, subscriberID)
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.subscribers {
		n += len(clients)
	}
	return n
}

// Dropped returns how many messages clients refused.
func (h *Hub) Dropped() uint64 { return h.droppedEvents.Load() }

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.subscribers {
		for c := range clients {
			if ok := c.Send(message); !ok {
				// slow or gone; the ws handler cleans up its own side
				h.droppedEvents.Add(1)
			}
		}
	}
}

// Publish encodes evt as JSON and broadcasts it.
func (h *Hub) Publish(evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("realtime: encode event", slog.String("type", string(evt.Type)), logging.Err(err))
		return
	}
	h.Broadcast(msg)
}
