package events

import (
	"context"
	"sync"

	"wchic_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// InMemoryBus dispatches events to handlers inside the current process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string][]Handler), log: log}
}

// Subscribe registers handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *InMemoryBus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[name]...)
}

// Publish runs every handler in its own goroutine, detached from ctx cancellation.
// Handler errors are logged.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.handlersFor(event.EventName()) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked", "event", event.EventName(), "panic", r)
				}
			}()
			if err := h.Handle(detached, event); err != nil {
				b.log.WithContext(detached).Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(h)
	}
}

// PublishSync runs all handlers concurrently and returns the first error.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range b.handlersFor(event.EventName()) {
		g.Go(func() error { return h.Handle(gctx, event) })
	}
	return g.Wait()
}

// Wait blocks until all asynchronous handlers have returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}
