// Package event provides the in-memory bus connecting the attempt, room and
// leaderboard services. Handlers run asynchronously on a bounded goroutine
// pool and never fail the publisher.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultPoolSize       = 10000
	defaultHandlerTimeout = 30 * time.Second
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Bus fans published events out to all handlers subscribed to the event name.
type Bus struct {
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates a bus. Callers own its lifecycle and should call Stop on
// shutdown so in-flight handlers can drain.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		sem:      make(chan struct{}, defaultPoolSize),
		handlers: make(map[string][]Handler),
	}

	for _, opt := range opts {
		opt(b)
	}
	return b
}

type Option func(*Bus)

// WithPoolSize bounds the number of concurrently running handlers.
func WithPoolSize(n int) Option {
	return func(b *Bus) {
		b.sem = make(chan struct{}, n)
	}
}

// Subscribe registers a handler for the named event. Wire subscriptions
// during initialization, before the first Publish.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Publish dispatches e to every subscribed handler. Publish blocks only when
// the handler pool is exhausted; handler errors and panics are logged, never
// returned.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, h := range b.handlers[e.Name()] {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	b.wg.Add(1)

	b.sem <- struct{}{}

	go func() {
		// Handlers outlive the publishing request, so they run on their own
		// deadline detached from the caller's cancellation.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultHandlerTimeout)
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "event: handler panic",
					"event", e.Name(),
					"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
				)
			}

			cancel()
			<-b.sem
			b.wg.Done()
		}()

		if err := h(ctx, e); err != nil {
			slog.ErrorContext(ctx, "event: handle event failed",
				"event", e.Name(),
				"error", err,
			)
		}
	}()
}

// Stop waits until every dispatched handler has finished.
func (b *Bus) Stop() {
	b.wg.Wait()
}
