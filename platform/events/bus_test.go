package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wchic_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

type countingHandler struct {
	calls atomic.Int32
	err   error
}

func (h *countingHandler) Handle(context.Context, Event) error {
	h.calls.Add(1)
	return h.err
}

func TestPublishRunsEverySubscriber(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	first, second, other := &countingHandler{}, &countingHandler{err: errors.New("ignored")}, &countingHandler{}
	bus.Subscribe("test.ping", first)
	bus.Subscribe("test.ping", second)
	bus.Subscribe("test.other", other)

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if first.calls.Load() != 1 || second.calls.Load() != 1 {
		t.Errorf("expected both subscribers once, got %d and %d", first.calls.Load(), second.calls.Load())
	}
	if other.calls.Load() != 0 {
		t.Errorf("expected other event's handler untouched")
	}
}

func TestPublishSyncReturnsHandlerError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	bus.Subscribe("test.ping", &countingHandler{err: errors.New("boom")})

	if err := bus.PublishSync(context.Background(), pingEvent{}); err == nil {
		t.Fatalf("expected handler error")
	}
}

func TestNewBaseEventIsUTC(t *testing.T) {
	e := NewBaseEvent()
	if e.OccurredAt().Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %s", e.OccurredAt().Location())
	}
}
