package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/presencehq/presence-backend-go/internal/domain/notification"
)

func testEvent(eventType notification.EventType) notification.Event {
	return notification.Event{
		Type:       eventType,
		TenantID:   "t1",
		EntityType: "member",
		EntityID:   "m1",
		OccurredAt: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestHub_FansOutToAllSubscribers(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	var first, second []notification.Event
	hub.Subscribe(func(e notification.Event) { first = append(first, e) })
	hub.Subscribe(func(e notification.Event) { second = append(second, e) })

	hub.Publish(context.Background(), testEvent(notification.EventCheckInRecorded))
	hub.Publish(context.Background(), testEvent(notification.EventCheckOutRecorded))

	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Equal(t, notification.EventCheckInRecorded, first[0].Type)
	assert.Equal(t, notification.EventCheckOutRecorded, second[1].Type)
}

func TestHub_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	var delivered []notification.Event
	hub.Subscribe(func(e notification.Event) { panic("boom") })
	hub.Subscribe(func(e notification.Event) { delivered = append(delivered, e) })

	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), testEvent(notification.EventMilestoneAchieved))
	})
	assert.Len(t, delivered, 1)
}

func TestHub_NoSubscribers(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), testEvent(notification.EventEngagementChanged))
	})
}
