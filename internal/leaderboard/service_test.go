package leaderboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/event"
	"github.com/quizie/quizie/internal/leaderboard"
)

func entry(userID string, score float64, rank int) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{UserID: userID, Score: score, Rank: rank}
}

func updated(roomCode string, entries ...domain.LeaderboardEntry) domain.EventRoomLeaderboardUpdated {
	return domain.EventRoomLeaderboardUpdated{
		Leaderboard: domain.RoomLeaderboard{
			RoomID:   "room-" + roomCode,
			RoomCode: roomCode,
			Entries:  entries,
		},
	}
}

func TestService_UpdateLeaderboard(t *testing.T) {
	s := makeService(t)

	err := s.UpdateLeaderboard(context.Background(), updated("A1B2C3",
		entry("u1", 80, 1),
		entry("u2", 60, 2),
	))
	require.NoError(t, err)

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{
		RoomCode: "A1B2C3",
	})
	require.NoError(t, err)

	want := &domain.RoomLeaderboard{
		RoomCode: "A1B2C3",
		Entries: []domain.LeaderboardEntry{
			{UserID: "u1", Score: 80, Rank: 1},
			{UserID: "u2", Score: 60, Rank: 2},
		},
	}
	require.Equal(t, want, resp)
}

func TestService_GetLeaderboard_KeepsTiedOrder(t *testing.T) {
	s := makeService(t)

	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(30 * time.Second)

	// zane sorts after aria lexicographically, so a sorted-set read would
	// surface zane first on a tied score. The mirror has to keep the
	// earlier-finisher order the room computed.
	e1 := entry("aria", 80, 1)
	e1.CompletedAt = first
	e2 := entry("zane", 80, 2)
	e2.CompletedAt = later

	err := s.UpdateLeaderboard(context.Background(), updated("A1B2C3", e1, e2))
	require.NoError(t, err)

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{
		RoomCode: "A1B2C3",
	})
	require.NoError(t, err)

	require.Equal(t, []domain.LeaderboardEntry{e1, e2}, resp.Entries)
}

func TestService_GetLeaderboard_Unknown(t *testing.T) {
	s := makeService(t)

	_, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{
		RoomCode: "FFFFFF",
	})
	require.Error(t, err)
}

func TestService_PublishBroadcast(t *testing.T) {
	type (
		inputs struct {
			receivedEvents []domain.EventRoomLeaderboardUpdated
		}

		outputs struct {
			publishedEvents []domain.EventRoomLeaderboardBroadcast
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should broadcast after an update": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventRoomLeaderboardUpdated{
						updated("A1B2C3", entry("u1", 80, 1)),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 1)
				require.Equal(t, "A1B2C3", out.publishedEvents[0].Leaderboard.RoomCode)
			},
		},

		"should broadcast separately for 2 different rooms": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventRoomLeaderboardUpdated{
						updated("A1B2C3", entry("u1", 80, 1)),
						updated("D4E5F6", entry("u2", 60, 1)),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 2)
			},
		},

		"should broadcast once for 2 updates of the same room within the publish interval": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventRoomLeaderboardUpdated{
						updated("A1B2C3", entry("u1", 80, 1)),
						updated("A1B2C3", entry("u1", 80, 1), entry("u2", 60, 2)),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 1)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in, out := tt.arrange(), outputs{}

			eb := event.NewBus()

			var mu sync.Mutex
			eb.Subscribe(domain.EventNameRoomLeaderboardBroadcast, func(ctx context.Context, e event.Event) error {
				mu.Lock()
				out.publishedEvents = append(out.publishedEvents, e.(domain.EventRoomLeaderboardBroadcast))
				mu.Unlock()
				return nil
			})

			s := makeService(t,
				withEventBus(eb),
			)

			for _, e := range in.receivedEvents {
				err := s.UpdateLeaderboard(context.Background(), e)
				require.NoError(t, err)
			}

			eb.Stop()

			tt.assert(t, out)
		})
	}
}

func makeService(t *testing.T, opts ...options) *leaderboard.Service {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := leaderboard.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return leaderboard.NewService(c)
}

type options func(c *leaderboard.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *leaderboard.Config) {
		c.EventBus = eb
	}
}
