// Package events is the in-process bus the lead, qualification and Podio
// modules use to hand work to each other without importing one another.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. EventName is the subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by every domain event for its timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// Bus delivers events to the handlers subscribed to their name.
type Bus interface {
	// Publish does not wait for handlers; their errors are only logged.
	Publish(ctx context.Context, event Event)
	// PublishSync waits for every handler and returns the first error.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
