package notification

import (
	"context"
	"time"
)

// EventType identifies a domain notification emitted by the attendance core.
type EventType string

const (
	EventCheckInRecorded   EventType = "checkIn:recorded"
	EventCheckOutRecorded  EventType = "checkOut:recorded"
	EventMilestoneAchieved EventType = "milestone:achieved"
	EventEngagementChanged EventType = "engagement:changed"
)

// Event is the payload handed to notification sinks. Delivery and
// subscription mechanics are out of the core's scope.
type Event struct {
	Type       EventType      `json:"type"`
	TenantID   string         `json:"tenant_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher fans events out to whatever sinks are attached. Implementations
// must never fail the emitting operation.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Subscriber receives published events.
type Subscriber func(event Event)
