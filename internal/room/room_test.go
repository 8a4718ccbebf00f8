package room_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/room"
)

func makeRoom(maxMembers int, memberIDs ...string) *domain.Room {
	r := &domain.Room{
		RoomID:   "r1",
		RoomCode: "A1B2C3",
		Name:     "test room",
		HostID:   "host",
		Status:   domain.RoomWaiting,
		Settings: domain.RoomSettings{MaxMembers: maxMembers},
		Members: []domain.Member{
			{UserID: "host", Role: domain.RoleHost, JoinedAt: time.Now()},
		},
	}

	for _, id := range memberIDs {
		r.Members = append(r.Members, domain.Member{
			UserID:   id,
			Role:     domain.RoleMember,
			JoinedAt: time.Now(),
		})
	}
	return r
}

func TestNewCode(t *testing.T) {
	format := regexp.MustCompile(`^[0-9A-F]{6}$`)

	for i := 0; i < 100; i++ {
		code := room.NewCode()
		require.Regexp(t, format, code)
	}
}

func TestAddMember(t *testing.T) {
	tests := map[string]struct {
		arrange func() *domain.Room
		userID  string
		wantErr error
	}{
		"should add a new member to a waiting room": {
			arrange: func() *domain.Room { return makeRoom(10) },
			userID:  "u1",
		},

		"should reject a user already in the room": {
			arrange: func() *domain.Room { return makeRoom(10, "u1") },
			userID:  "u1",
			wantErr: domain.ErrDuplicateMember,
		},

		"should reject when the room is at capacity": {
			arrange: func() *domain.Room { return makeRoom(2, "u1") },
			userID:  "u2",
			wantErr: domain.ErrRoomFull,
		},

		"should reject joining a closed room": {
			arrange: func() *domain.Room {
				r := makeRoom(10)
				room.Close(r)
				return r
			},
			userID:  "u1",
			wantErr: domain.ErrRoomClosed,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := tt.arrange()
			before := r.MemberCount()

			err := room.AddMember(r, tt.userID, time.Now())

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, before, r.MemberCount(), "member set should be unchanged")
				return
			}

			require.NoError(t, err)
			require.True(t, room.IsMember(r, tt.userID))
			require.Equal(t, domain.RoleMember, r.Members[len(r.Members)-1].Role)
		})
	}
}

func TestRemoveMember(t *testing.T) {
	r := makeRoom(10, "u1")

	room.RemoveMember(r, "u1")
	require.False(t, room.IsMember(r, "u1"))
	require.Equal(t, 1, r.MemberCount())

	// removing again is a no-op
	room.RemoveMember(r, "u1")
	require.Equal(t, 1, r.MemberCount())
}

func TestStartQuiz(t *testing.T) {
	t.Run("should activate the room and snapshot participants", func(t *testing.T) {
		r := makeRoom(10, "u1", "u2")

		err := room.StartQuiz(r, "q1", time.Now())
		require.NoError(t, err)

		require.Equal(t, domain.RoomActive, r.Status)
		require.Equal(t, "q1", r.QuizID)
		require.NotNil(t, r.Session.StartedAt)
		require.Len(t, r.Session.Participants, 3)
		for _, p := range r.Session.Participants {
			require.Zero(t, p.Score)
			require.Zero(t, p.Rank)
			require.Nil(t, p.CompletedAt)
		}
	})

	t.Run("should not snapshot members joining after the start", func(t *testing.T) {
		r := makeRoom(10)
		require.NoError(t, room.StartQuiz(r, "q1", time.Now()))

		require.NoError(t, room.AddMember(r, "late", time.Now()))
		require.Len(t, r.Session.Participants, 1)
	})

	t.Run("should fail when the room is already active", func(t *testing.T) {
		r := makeRoom(10)
		require.NoError(t, room.StartQuiz(r, "q1", time.Now()))

		err := room.StartQuiz(r, "q2", time.Now())
		require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("should fail on a closed room", func(t *testing.T) {
		r := makeRoom(10)
		room.Close(r)

		err := room.StartQuiz(r, "q1", time.Now())
		require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})
}

func TestSubmitAttempt(t *testing.T) {
	t0 := time.Now()

	start := func(t *testing.T, r *domain.Room) {
		require.NoError(t, room.StartQuiz(r, "q1", t0))
	}

	t.Run("should fail for a user outside the participant snapshot", func(t *testing.T) {
		r := makeRoom(10)
		start(t, r)

		err := room.SubmitAttempt(r, "stranger", "a1", 50, t0.Add(time.Minute))
		require.ErrorIs(t, err, domain.ErrNotAParticipant)
	})

	t.Run("should record the attempt and rank the participant", func(t *testing.T) {
		r := makeRoom(10, "u1")
		start(t, r)

		err := room.SubmitAttempt(r, "u1", "a1", 75, t0.Add(time.Minute))
		require.NoError(t, err)

		require.Equal(t, domain.RoomActive, r.Status, "room should stay active until everyone finishes")

		p := r.Session.Participants[1]
		require.Equal(t, "a1", p.AttemptID)
		require.Equal(t, 75.0, p.Score)
		require.Equal(t, 1, p.Rank)
		require.NotNil(t, p.CompletedAt)
	})

	t.Run("should complete the room once every participant has finished", func(t *testing.T) {
		r := makeRoom(10, "u1")
		start(t, r)

		require.NoError(t, room.SubmitAttempt(r, "host", "a1", 40, t0.Add(time.Minute)))
		require.Equal(t, domain.RoomActive, r.Status)

		require.NoError(t, room.SubmitAttempt(r, "u1", "a2", 60, t0.Add(2*time.Minute)))
		require.Equal(t, domain.RoomCompleted, r.Status)
		require.NotNil(t, r.Session.CompletedAt)
	})

	t.Run("should break score ties by earlier completion", func(t *testing.T) {
		r := makeRoom(10, "u1", "u2")
		start(t, r)

		require.NoError(t, room.SubmitAttempt(r, "u1", "a1", 80, t0.Add(time.Minute)))
		require.NoError(t, room.SubmitAttempt(r, "u2", "a2", 80, t0.Add(2*time.Minute)))
		require.NoError(t, room.SubmitAttempt(r, "host", "a3", 10, t0.Add(3*time.Minute)))

		entries := room.Leaderboard(r)
		require.Len(t, entries, 3)
		require.Equal(t, "u1", entries[0].UserID)
		require.Equal(t, 1, entries[0].Rank)
		require.Equal(t, "u2", entries[1].UserID)
		require.Equal(t, 2, entries[1].Rank)
		require.Equal(t, "host", entries[2].UserID)
		require.Equal(t, 3, entries[2].Rank)
	})
}

func TestLeaderboard(t *testing.T) {
	t.Run("should exclude participants who have not completed", func(t *testing.T) {
		t0 := time.Now()
		r := makeRoom(10, "p1", "p2")
		require.NoError(t, room.StartQuiz(r, "q1", t0))

		require.NoError(t, room.SubmitAttempt(r, "p1", "a1", 80, t0.Add(time.Minute)))
		require.NoError(t, room.SubmitAttempt(r, "p2", "a2", 80, t0.Add(2*time.Minute)))

		entries := room.Leaderboard(r)
		require.Len(t, entries, 2, "uncompleted host should be excluded")
		require.Equal(t, []string{"p1", "p2"}, []string{entries[0].UserID, entries[1].UserID})
	})

	t.Run("should be empty before anyone completes", func(t *testing.T) {
		r := makeRoom(10, "p1")
		require.NoError(t, room.StartQuiz(r, "q1", time.Now()))

		require.Empty(t, room.Leaderboard(r))
	})
}
