// Package leaderboard keeps a realtime mirror of room leaderboards in Redis
// and throttles their broadcast to connected clients. The authoritative ranks
// are recomputed by the room core on every submission and mirrored verbatim,
// so reads preserve the ranking order, including the earlier-finisher
// tie-break on equal scores.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/errors"
	"github.com/quizie/quizie/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameRoomLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventRoomLeaderboardUpdated))
	})

	return s
}

type GetLeaderboardRequest struct {
	RoomCode string
}

// GetLeaderboard returns the mirrored leaderboard for a room, in the order
// the room core ranked it.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.RoomLeaderboard, error) {
	b, err := s.redis.Get(ctx, s.leaderboardKey(req.RoomCode)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("leaderboard not found: room=%s", req.RoomCode))
	}
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	l := &domain.RoomLeaderboard{RoomCode: req.RoomCode}
	if err := json.Unmarshal(b, &l.Entries); err != nil {
		return nil, fmt.Errorf("unmarshal leaderboard: %w", err)
	}

	return l, nil
}

// UpdateLeaderboard mirrors the recomputed entries into Redis as-is and
// schedules a broadcast.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventRoomLeaderboardUpdated) error {
	l := e.Leaderboard

	if len(l.Entries) > 0 {
		b, err := json.Marshal(l.Entries)
		if err != nil {
			return fmt.Errorf("marshal leaderboard: %w", err)
		}

		if err := s.redis.Set(ctx, s.leaderboardKey(l.RoomCode), b, 0).Err(); err != nil {
			return fmt.Errorf("update leaderboard: %w", err)
		}
	}

	return s.schedulePublish(ctx, l)
}

// schedulePublish broadcasts at most once per publishInterval per room, since
// many submissions can land in a short window near a quiz deadline.
func (s *Service) schedulePublish(ctx context.Context, l domain.RoomLeaderboard) error {
	ok, err := s.redis.SetNX(ctx, s.timeKey(l.RoomCode), time.Now().UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	s.eb.Publish(ctx, domain.EventRoomLeaderboardBroadcast{Leaderboard: l})
	return nil
}

func (s *Service) leaderboardKey(roomCode string) string {
	return fmt.Sprintf("%s:room:%s:leaderboard", s.prefix, roomCode)
}

func (s *Service) timeKey(roomCode string) string {
	return fmt.Sprintf("%s:room:%s:time", s.prefix, roomCode)
}
