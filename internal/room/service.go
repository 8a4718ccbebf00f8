package room

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizie/quizie/internal/attempt"
	"github.com/quizie/quizie/internal/auth"
	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/errors"
	"github.com/quizie/quizie/internal/event"
	"github.com/quizie/quizie/internal/quiz"
	"github.com/quizie/quizie/internal/telemetry"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
	Users    *auth.Service
	Quiz     *quiz.Service
	Attempts *attempt.Service
}

// Service persists room aggregates and applies the membership/ranking core.
// Every mutation is a read-modify-write of one aggregate inside a transaction;
// the room row is locked for the duration so concurrent writers on the same
// room serialize instead of racing the capacity and duplicate checks.
type Service struct {
	db       *pgxpool.Pool
	eb       *event.Bus
	users    *auth.Service
	quiz     *quiz.Service
	attempts *attempt.Service
}

func NewService(c Config) *Service {
	return &Service{
		db:       c.DB,
		eb:       c.EventBus,
		users:    c.Users,
		quiz:     c.Quiz,
		attempts: c.Attempts,
	}
}

// mapDomainErr attaches a transport code to the core's sentinel failures.
// The sentinel stays reachable through Unwrap for errors.Is checks.
func mapDomainErr(err error) error {
	var code errors.Code
	switch {
	case stderrors.Is(err, domain.ErrDuplicateMember):
		code = errors.CodeAlreadyExists
	case stderrors.Is(err, domain.ErrRoomFull),
		stderrors.Is(err, domain.ErrRoomClosed),
		stderrors.Is(err, domain.ErrInvalidStateTransition),
		stderrors.Is(err, domain.ErrNotAParticipant):
		code = errors.CodeFailedPrecondition
	default:
		return err
	}

	return errors.New(code, errors.WithMessagef("%s", err), errors.WithCause(err))
}

type CreateRequest struct {
	HostID      string
	Name        string
	Description string
	Settings    *domain.RoomSettings
}

// Create allocates a unique room code, stores the room with the host as its
// first member, and bumps the host's created-rooms counter.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Room, error) {
	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("room name must be 3-100 characters"))
	}

	settings := domain.DefaultRoomSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if settings.MaxMembers < 2 {
		settings.MaxMembers = 2
	}
	if settings.MaxMembers > 100 {
		settings.MaxMembers = 100
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate room ID: %w", err)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	r := &domain.Room{
		RoomID:      id.String(),
		RoomCode:    code,
		Name:        name,
		Description: req.Description,
		HostID:      req.HostID,
		Settings:    settings,
		Status:      domain.RoomWaiting,
		Members: []domain.Member{
			{UserID: req.HostID, Role: domain.RoleHost, JoinedAt: now},
		},
		CreatedAt: now,
	}

	if err := s.insertRoom(ctx, r); err != nil {
		return nil, err
	}

	if err := s.users.IncrementRoomsCreated(ctx, req.HostID); err != nil {
		return nil, fmt.Errorf("update host stats: %w", err)
	}

	telemetry.RoomsCreated.Inc()
	return r, nil
}

// uniqueCode samples codes until one not present in storage is found. The
// code is rechecked at insert time through the unique constraint, so a racing
// writer loses with a storage error rather than a duplicate code.
func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for {
		code := NewCode()

		var exists bool
		err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM rooms WHERE room_code = $1);`, code,
		).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}

		if !exists {
			return code, nil
		}
	}
}

func (s *Service) insertRoom(ctx context.Context, r *domain.Room) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const insRoomStmt = `
INSERT INTO rooms (room_id, room_code, name, description, host_id, quiz_id, status,
	max_members, is_private, allow_member_invite, show_leaderboard, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	_, err = tx.Exec(ctx, insRoomStmt,
		r.RoomID, r.RoomCode, r.Name, r.Description, r.HostID, r.QuizID, r.Status,
		r.Settings.MaxMembers, r.Settings.IsPrivate, r.Settings.AllowMemberInvite,
		r.Settings.ShowLeaderboardDuringQuiz, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	for _, m := range r.Members {
		if err = insertMember(ctx, tx, r.RoomID, m); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertMember(ctx context.Context, tx pgx.Tx, roomID string, m domain.Member) error {
	const stmt = `
INSERT INTO room_members (room_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4);`

	if _, err := tx.Exec(ctx, stmt, roomID, m.UserID, m.Role, m.JoinedAt); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadRoom reads the full aggregate. When q is a transaction the room row is
// locked so the read-modify-write serializes per room.
func loadRoom(ctx context.Context, q querier, where string, arg any, forUpdate bool) (*domain.Room, error) {
	stmt := fmt.Sprintf(`
SELECT room_id, room_code, name, description, host_id, quiz_id, status,
	max_members, is_private, allow_member_invite, show_leaderboard,
	started_at, completed_at, create_time
FROM rooms WHERE %s = $1`, where)
	if forUpdate {
		stmt += " FOR UPDATE"
	}

	var r domain.Room
	err := q.QueryRow(ctx, stmt, arg).Scan(
		&r.RoomID, &r.RoomCode, &r.Name, &r.Description, &r.HostID, &r.QuizID, &r.Status,
		&r.Settings.MaxMembers, &r.Settings.IsPrivate, &r.Settings.AllowMemberInvite,
		&r.Settings.ShowLeaderboardDuringQuiz,
		&r.Session.StartedAt, &r.Session.CompletedAt, &r.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("room not found"))
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT user_id, role, joined_at FROM room_members WHERE room_id = $1 ORDER BY joined_at;`,
		r.RoomID)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	r.Members, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Member, error) {
		var m domain.Member
		err := row.Scan(&m.UserID, &m.Role, &m.JoinedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect members: %w", err)
	}

	rows, err = q.Query(ctx,
		`SELECT user_id, attempt_id, score, rank, completed_at FROM room_participants WHERE room_id = $1 ORDER BY joined_order;`,
		r.RoomID)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	r.Session.Participants, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Participant, error) {
		var p domain.Participant
		err := row.Scan(&p.UserID, &p.AttemptID, &p.Score, &p.Rank, &p.CompletedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect participants: %w", err)
	}

	return &r, nil
}

// saveSession rewrites the room's mutable state and its participant rows.
func saveSession(ctx context.Context, tx pgx.Tx, r *domain.Room) error {
	const updStmt = `
UPDATE rooms SET quiz_id = $2, status = $3, started_at = $4, completed_at = $5 WHERE room_id = $1;`

	_, err := tx.Exec(ctx, updStmt, r.RoomID, r.QuizID, r.Status, r.Session.StartedAt, r.Session.CompletedAt)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM room_participants WHERE room_id = $1;`, r.RoomID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}

	const insStmt = `
INSERT INTO room_participants (room_id, user_id, attempt_id, score, rank, completed_at, joined_order)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	for i, p := range r.Session.Participants {
		_, err := tx.Exec(ctx, insStmt, r.RoomID, p.UserID, p.AttemptID, p.Score, p.Rank, p.CompletedAt, i)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	return nil
}

// inTx runs fn against a locked room aggregate and commits its mutations.
func (s *Service) inTx(ctx context.Context, where string, arg any, fn func(tx pgx.Tx, r *domain.Room) error) (r *domain.Room, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	r, err = loadRoom(ctx, tx, where, arg, true)
	if err != nil {
		return nil, err
	}

	if err = fn(tx, r); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return r, nil
}

// JoinByCode adds the user to the room behind the shared code. Joining a room
// the user is already in succeeds idempotently with the current room state.
func (s *Service) JoinByCode(ctx context.Context, roomCode, userID string) (*domain.Room, error) {
	var joined bool
	r, err := s.inTx(ctx, "room_code", normalizeCode(roomCode), func(tx pgx.Tx, r *domain.Room) error {
		if IsMember(r, userID) {
			return nil
		}

		if err := AddMember(r, userID, time.Now()); err != nil {
			return mapDomainErr(err)
		}

		joined = true
		return insertMember(ctx, tx, r.RoomID, r.Members[len(r.Members)-1])
	})
	if err != nil {
		return nil, err
	}

	if joined {
		if err := s.users.IncrementRoomsJoined(ctx, userID); err != nil {
			return nil, fmt.Errorf("update member stats: %w", err)
		}
	}

	return r, nil
}

// AddMemberByUsername lets the host invite a user directly.
func (s *Service) AddMemberByUsername(ctx context.Context, roomID, hostID, username string) (*domain.Room, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return s.inTx(ctx, "room_id", roomID, func(tx pgx.Tx, r *domain.Room) error {
		if !IsHost(r, hostID) {
			return errors.New(errors.CodePermissionDenied,
				errors.WithMessagef("only the host can add members"))
		}

		if err := AddMember(r, u.UserID, time.Now()); err != nil {
			return mapDomainErr(err)
		}

		return insertMember(ctx, tx, r.RoomID, r.Members[len(r.Members)-1])
	})
}

// Leave removes the user from the member set. The host cannot leave its own
// room; it closes the room instead. Leaving a room the user is not in is a
// no-op.
func (s *Service) Leave(ctx context.Context, roomID, userID string) error {
	_, err := s.inTx(ctx, "room_id", roomID, func(tx pgx.Tx, r *domain.Room) error {
		if IsHost(r, userID) {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithMessagef("host cannot leave the room; delete the room or transfer host rights"))
		}

		RemoveMember(r, userID)

		_, err := tx.Exec(ctx,
			`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2;`, r.RoomID, userID)
		if err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		return nil
	})
	return err
}

// StartQuiz binds a quiz to the room and snapshots the participant list.
// Host only; legal only from waiting.
func (s *Service) StartQuiz(ctx context.Context, roomID, hostID, quizID string) (*domain.Room, error) {
	if _, err := s.quiz.Preview(ctx, quizID); err != nil {
		return nil, err
	}

	return s.inTx(ctx, "room_id", roomID, func(tx pgx.Tx, r *domain.Room) error {
		if !IsHost(r, hostID) {
			return errors.New(errors.CodePermissionDenied,
				errors.WithMessagef("only the host can start the quiz"))
		}

		if err := StartQuiz(r, quizID, time.Now()); err != nil {
			return mapDomainErr(err)
		}

		return saveSession(ctx, tx, r)
	})
}

type SubmitAttemptRequest struct {
	RoomID    string
	UserID    string
	AttemptID string
}

// SubmitAttempt records a participant's scored attempt, recomputes the
// leaderboard, and completes the room once every participant has finished.
func (s *Service) SubmitAttempt(ctx context.Context, req SubmitAttemptRequest) (*domain.Room, error) {
	a, err := s.attempts.GetByID(ctx, req.AttemptID)
	if err != nil {
		return nil, err
	}

	r, err := s.inTx(ctx, "room_id", req.RoomID, func(tx pgx.Tx, r *domain.Room) error {
		if err := SubmitAttempt(r, req.UserID, a.AttemptID, a.Score.Percentage, time.Now()); err != nil {
			return mapDomainErr(err)
		}

		return saveSession(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventRoomLeaderboardUpdated{
		Leaderboard: s.leaderboardOf(r),
	})

	if r.Status == domain.RoomCompleted {
		s.eb.Publish(ctx, domain.EventRoomCompleted{Room: *r})
	}

	return r, nil
}

// GetRoom returns the aggregate to a member.
func (s *Service) GetRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	r, err := loadRoom(ctx, s.db, "room_id", roomID, false)
	if err != nil {
		return nil, err
	}

	if !IsMember(r, userID) {
		return nil, errNotAMember()
	}

	return r, nil
}

// GetLeaderboard returns the ranked view of completed participants to a member.
func (s *Service) GetLeaderboard(ctx context.Context, roomID, userID string) ([]domain.LeaderboardEntry, error) {
	r, err := loadRoom(ctx, s.db, "room_id", roomID, false)
	if err != nil {
		return nil, err
	}

	if !IsMember(r, userID) {
		return nil, errNotAMember()
	}

	return Leaderboard(r), nil
}

func errNotAMember() error {
	return errors.New(errors.CodePermissionDenied,
		errors.WithMessagef("you are not a member of this room"))
}

// MyRooms lists the user's non-closed rooms, newest first.
func (s *Service) MyRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	const stmt = `
SELECT r.room_id FROM rooms r
JOIN room_members m ON m.room_id = r.room_id
WHERE m.user_id = $1 AND r.status <> 'closed'
ORDER BY r.create_time DESC;`

	rows, err := s.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	ids, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect rooms: %w", err)
	}

	rooms := make([]domain.Room, 0, len(ids))
	for _, id := range ids {
		r, err := loadRoom(ctx, s.db, "room_id", id, false)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}

	return rooms, nil
}

// Close marks the room closed. Host only; terminal.
func (s *Service) Close(ctx context.Context, roomID, userID string) error {
	_, err := s.inTx(ctx, "room_id", roomID, func(tx pgx.Tx, r *domain.Room) error {
		if !IsHost(r, userID) {
			return errors.New(errors.CodePermissionDenied,
				errors.WithMessagef("only the host can delete the room"))
		}

		Close(r)

		if _, err := tx.Exec(ctx, `UPDATE rooms SET status = $2 WHERE room_id = $1;`, r.RoomID, r.Status); err != nil {
			return fmt.Errorf("close room: %w", err)
		}
		return nil
	})
	return err
}

func (s *Service) leaderboardOf(r *domain.Room) domain.RoomLeaderboard {
	members := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, m.UserID)
	}

	return domain.RoomLeaderboard{
		RoomID:    r.RoomID,
		RoomCode:  r.RoomCode,
		Entries:   Leaderboard(r),
		MemberIDs: members,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
