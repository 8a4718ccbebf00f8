package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/event"
)

type namedEvent string

func (e namedEvent) Name() string { return string(e) }

type recorder struct {
	mu       sync.Mutex
	received map[string][]event.Event
}

func newRecorder() *recorder {
	return &recorder{received: make(map[string][]event.Event)}
}

func (r *recorder) handler(subscriber string) event.Handler {
	return func(_ context.Context, e event.Event) error {
		r.mu.Lock()
		r.received[subscriber] = append(r.received[subscriber], e)
		r.mu.Unlock()
		return nil
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	type subscription struct {
		subscriber string
		event      string
	}

	tests := map[string]struct {
		published     []event.Event
		subscriptions []subscription
		assert        func(t *testing.T, r *recorder)
	}{
		"should deliver only subscribed events": {
			published: []event.Event{
				namedEvent("quiz.generated"),
				namedEvent("room.completed"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", event: "quiz.generated"},
			},

			assert: func(t *testing.T, r *recorder) {
				assert.ElementsMatch(t,
					[]event.Event{namedEvent("quiz.generated")},
					r.received["s1"])
			},
		},

		"should deliver every occurrence of an event": {
			published: []event.Event{
				namedEvent("quiz.generated"),
				namedEvent("quiz.generated"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", event: "quiz.generated"},
			},

			assert: func(t *testing.T, r *recorder) {
				assert.Len(t, r.received["s1"], 2)
			},
		},

		"should fan one event out to all subscribers": {
			published: []event.Event{
				namedEvent("room.leaderboard.updated"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", event: "room.leaderboard.updated"},
				{subscriber: "s2", event: "room.leaderboard.updated"},
			},

			assert: func(t *testing.T, r *recorder) {
				assert.Len(t, r.received["s1"], 1)
				assert.Len(t, r.received["s2"], 1)
			},
		},

		"should route mixed events to the right subscribers": {
			published: []event.Event{
				namedEvent("quiz.generated"),
				namedEvent("room.completed"),
				namedEvent("quiz.generated"),
			},
			subscriptions: []subscription{
				{subscriber: "s1", event: "quiz.generated"},
				{subscriber: "s2", event: "quiz.generated"},
				{subscriber: "s2", event: "room.completed"},
			},

			assert: func(t *testing.T, r *recorder) {
				assert.Len(t, r.received["s1"], 2)
				assert.Len(t, r.received["s2"], 3)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := newRecorder()

			b := event.NewBus()
			for _, s := range tt.subscriptions {
				b.Subscribe(s.event, r.handler(s.subscriber))
			}

			for _, e := range tt.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, r)
		})
	}
}

func TestBus_HandlerFailureIsolation(t *testing.T) {
	b := event.NewBus(event.WithPoolSize(2))

	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(name string) {
		mu.Lock()
		calls = append(calls, name)
		mu.Unlock()
	}

	b.Subscribe("e", func(context.Context, event.Event) error {
		record("panicking")
		panic("boom")
	})
	b.Subscribe("e", func(context.Context, event.Event) error {
		record("failing")
		return errors.New("handler failed")
	})
	b.Subscribe("e", func(context.Context, event.Event) error {
		record("healthy")
		return nil
	})

	b.Publish(context.Background(), namedEvent("e"))
	b.Stop()

	require.ElementsMatch(t, []string{"panicking", "failing", "healthy"}, calls,
		"a panicking or failing handler should not stop the others")
}
