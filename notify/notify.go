// Package notify carries the "delivery attempted" signal. Observers are
// registered explicitly and run synchronously after each hand-off.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xraph/resthook/subscription"
)

// Attempt describes one payload handed off for delivery.
type Attempt struct {
	Event        string
	Payload      any
	Instance     any
	Subscription *subscription.Subscription
}

// Observer receives attempts. A returned error or a panic is logged and
// contained; it never affects delivery or other observers.
type Observer func(ctx context.Context, a Attempt) error

// Bus fans attempts out to registered observers.
type Bus struct {
	mu        sync.RWMutex
	observers map[int]Observer
	next      int
	logger    *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		observers: make(map[int]Observer),
		logger:    logger,
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Observer) (cancel func()) {
	b.mu.Lock()
	key := b.next
	b.next++
	b.observers[key] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.observers, key)
			b.mu.Unlock()
		})
	}
}

// Len returns the number of registered observers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Emit calls every observer with a and returns the failures, one per
// failing observer.
func (b *Bus) Emit(ctx context.Context, a Attempt) []error {
	b.mu.RLock()
	observers := make([]Observer, 0, len(b.observers))
	for _, fn := range b.observers {
		observers = append(observers, fn)
	}
	b.mu.RUnlock()

	var errs []error
	for _, fn := range observers {
		if err := b.call(ctx, fn, a); err != nil {
			b.logger.WarnContext(ctx, "resthook: observer failed",
				"event", a.Event, "error", err)
			errs = append(errs, err)
		}
	}
	return errs
}

func (b *Bus) call(ctx context.Context, fn Observer, a Attempt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return fn(ctx, a)
}
