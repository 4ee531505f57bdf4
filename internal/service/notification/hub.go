package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/presencehq/presence-backend-go/internal/domain/notification"
)

// Hub is an in-process notification publisher. It fans events out to the
// attached subscribers; delivery mechanics beyond the process boundary are a
// subscriber concern, not the hub's.
type Hub struct {
	mu          sync.RWMutex
	subscribers []notification.Subscriber
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe attaches a sink. Subscribers registered at startup only; the hub
// takes no responsibility for unsubscribing.
func (h *Hub) Subscribe(sub notification.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, sub)
}

// Publish implements notification.Publisher. A panicking subscriber never
// fails the emitting operation.
func (h *Hub) Publish(ctx context.Context, event notification.Event) {
	slog.Debug("notification published",
		"type", event.Type,
		"tenant_id", event.TenantID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID)

	h.mu.RLock()
	subs := make([]notification.Subscriber, len(h.subscribers))
	copy(subs, h.subscribers)
	h.mu.RUnlock()

	for _, sub := range subs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					slog.Error("notification subscriber panicked", "type", event.Type, "panic", p)
				}
			}()
			sub(event)
		}()
	}
}
