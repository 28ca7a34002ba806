package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Appender is the subset of Store the bus needs for persistence.
type Appender interface {
	Append(ctx context.Context, e Event) error
}

// Handler processes an Event; return error to signal failure.
type Handler func(Event) error

// Bus is a simple synchronous pub/sub event bus for migration lifecycle
// events. Persistence, when configured, happens before handler delivery and
// is best-effort: a journal write failure never fails the migration itself.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	all         []Handler
	store       Appender // optional
}

func NewBus() *Bus { return &Bus{subscribers: map[string][]Handler{}} }

// NewBusWithStore creates a bus that persists events to the journal store.
func NewBusWithStore(store Appender) *Bus {
	return &Bus{
		subscribers: map[string][]Handler{},
		store:       store,
	}
}

// Subscribe registers a handler for a given event name.
func (b *Bus) Subscribe(event string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], h)
	b.mu.Unlock()
}

// SubscribeAll registers a handler for every event regardless of name.
func (b *Bus) SubscribeAll(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.all = append(b.all, h)
	b.mu.Unlock()
}

// Publish delivers an event to all handlers synchronously. A nil bus
// discards events so callers can treat the journal as optional.
func (b *Bus) Publish(e Event) error {
	if b == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	if b.store != nil {
		if err := b.store.Append(context.Background(), e); err != nil {
			slog.Warn("journal append failed", "event", e.Name, "error", err)
		}
	}

	b.mu.RLock()
	hs := append([]Handler(nil), b.all...)
	hs = append(hs, b.subscribers[e.Name]...)
	b.mu.RUnlock()
	for _, h := range hs {
		if err := h(e); err != nil {
			return err
		}
	}
	return nil
}
