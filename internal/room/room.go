// Package room implements the multiplayer room core: membership policy, the
// room status state machine, and leaderboard ranking. Everything in this file
// operates on an already-loaded aggregate; persistence lives in the service.
package room

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/quizie/quizie/internal/domain"
)

// NewCode returns a 6-character uppercase alphanumeric room code derived from
// 3 random bytes. Uniqueness is not guaranteed here; callers must recheck the
// code against storage and re-sample on collision.
func NewCode() string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

// IsHost reports whether userID is the room's host.
func IsHost(r *domain.Room, userID string) bool {
	return r.HostID == userID
}

// IsMember reports whether userID is in the member set.
func IsMember(r *domain.Room, userID string) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AddMember appends userID to the member set with role member.
// Fails with ErrDuplicateMember, ErrRoomFull or ErrRoomClosed. The room
// status is never affected.
func AddMember(r *domain.Room, userID string, now time.Time) error {
	if IsMember(r, userID) {
		return domain.ErrDuplicateMember
	}
	if r.IsFull() {
		return domain.ErrRoomFull
	}
	if r.Status == domain.RoomClosed {
		return domain.ErrRoomClosed
	}

	r.Members = append(r.Members, domain.Member{
		UserID:   userID,
		Role:     domain.RoleMember,
		JoinedAt: now,
	})
	return nil
}

// RemoveMember removes any member entry matching userID. Removing a
// non-member is a no-op. Host removal must be rejected by the caller: the
// host transfers or closes the room, it never leaves through this path.
func RemoveMember(r *domain.Room, userID string) {
	kept := r.Members[:0]
	for _, m := range r.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	r.Members = kept
}

// StartQuiz transitions waiting -> active, binds the quiz, and snapshots the
// participant list from the members present at this instant. Members joining
// later are not retroactively added as participants.
func StartQuiz(r *domain.Room, quizID string, now time.Time) error {
	if r.Status != domain.RoomWaiting {
		return domain.ErrInvalidStateTransition
	}

	r.QuizID = quizID
	r.Status = domain.RoomActive
	r.Session.StartedAt = &now

	r.Session.Participants = make([]domain.Participant, 0, len(r.Members))
	for _, m := range r.Members {
		r.Session.Participants = append(r.Session.Participants, domain.Participant{
			UserID: m.UserID,
		})
	}
	return nil
}

// SubmitAttempt records a participant's result, recomputes ranks over all
// completed participants, and transitions the room to completed once every
// participant has finished.
func SubmitAttempt(r *domain.Room, userID, attemptID string, score float64, now time.Time) error {
	var p *domain.Participant
	for i := range r.Session.Participants {
		if r.Session.Participants[i].UserID == userID {
			p = &r.Session.Participants[i]
			break
		}
	}
	if p == nil {
		return domain.ErrNotAParticipant
	}

	p.AttemptID = attemptID
	p.Score = score
	completed := now
	p.CompletedAt = &completed

	calculateRanks(r)

	allCompleted := true
	for _, pt := range r.Session.Participants {
		if pt.CompletedAt == nil {
			allCompleted = false
			break
		}
	}
	if allCompleted {
		r.Status = domain.RoomCompleted
		r.Session.CompletedAt = &completed
	}
	return nil
}

// calculateRanks assigns 1-based ranks to completed participants, ordered by
// score descending with earlier completion winning ties. Participants without
// a completion time keep rank 0.
func calculateRanks(r *domain.Room) {
	done := make([]*domain.Participant, 0, len(r.Session.Participants))
	for i := range r.Session.Participants {
		if r.Session.Participants[i].CompletedAt != nil {
			done = append(done, &r.Session.Participants[i])
		}
	}

	sort.SliceStable(done, func(i, j int) bool {
		if done[i].Score != done[j].Score {
			return done[i].Score > done[j].Score
		}
		return done[i].CompletedAt.Before(*done[j].CompletedAt)
	})

	for i, p := range done {
		p.Rank = i + 1
	}
}

// Close marks the room closed. Terminal: closed rooms reject AddMember and
// StartQuiz.
func Close(r *domain.Room) {
	r.Status = domain.RoomClosed
}

// Leaderboard projects the completed participants, sorted by rank ascending.
func Leaderboard(r *domain.Room) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(r.Session.Participants))
	for _, p := range r.Session.Participants {
		if p.CompletedAt == nil {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      p.UserID,
			Score:       p.Score,
			Rank:        p.Rank,
			CompletedAt: *p.CompletedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rank < entries[j].Rank
	})
	return entries
}
