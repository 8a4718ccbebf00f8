package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/room"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	LeaderboardUpdate struct {
		RoomCode string                    `json:"roomCode"`
		Entries  []domain.LeaderboardEntry `json:"entries"`
	}
)

// PublishLeaderboardBroadcast fans the throttled leaderboard out to every
// room member's notification channel.
func (a *API) PublishLeaderboardBroadcast(ctx context.Context, e domain.EventRoomLeaderboardBroadcast) error {
	l := e.Leaderboard

	data := LeaderboardUpdate{
		RoomCode: l.RoomCode,
		Entries:  l.Entries,
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, user := range l.MemberIDs {
		user := user
		eg.Go(func() error {
			return a.publishNotification(ctx, user, e.Name(), data)
		})
	}

	return eg.Wait()
}

type RoomCompleted struct {
	RoomCode    string                    `json:"roomCode"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// PublishRoomCompleted notifies every member that the session finished, with
// the final ranking attached.
func (a *API) PublishRoomCompleted(ctx context.Context, e domain.EventRoomCompleted) error {
	r := e.Room

	data := RoomCompleted{
		RoomCode:    r.RoomCode,
		Leaderboard: room.Leaderboard(&r),
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, m := range r.Members {
		m := m
		eg.Go(func() error {
			return a.publishNotification(ctx, m.UserID, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
