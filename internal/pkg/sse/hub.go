package sse

import (
	"sync"

	"github.com/presencehq/presence-backend-go/internal/domain/notification"
)

// Hub manages SSE subscribers, keyed by tenant. Dashboards subscribe to their
// tenant's stream and receive every attendance event published for it.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan notification.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan notification.Event]struct{}),
	}
}

// Subscribe registers a subscriber for a tenant and returns the event channel
// and a cleanup function.
func (h *Hub) Subscribe(tenantID string) (chan notification.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan notification.Event, 16)

	if h.subscribers[tenantID] == nil {
		h.subscribers[tenantID] = make(map[chan notification.Event]struct{})
	}
	h.subscribers[tenantID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[tenantID], ch)
		close(ch)
		if len(h.subscribers[tenantID]) == 0 {
			delete(h.subscribers, tenantID)
		}
	}

	return ch, cleanup
}

// Publish sends an event to every subscriber of the event's tenant. Sends are
// non-blocking: a slow consumer loses events rather than stalling the hub.
func (h *Hub) Publish(event notification.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[event.TenantID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers for a tenant.
func (h *Hub) SubscriberCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tenantID])
}
