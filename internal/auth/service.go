// Package auth owns user identity: registration, login, profile, and the JWT
// tokens consumed by the API middleware.
package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/errors"
)

const bcryptCost = 10

// Usernames allow dots and underscores on top of letters and digits.
var usernameRx = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

type Config struct {
	DB     *pgxpool.Pool
	Tokens *TokenIssuer
}

type Service struct {
	db     *pgxpool.Pool
	tokens *TokenIssuer
}

func NewService(c Config) *Service {
	return &Service{
		db:     c.DB,
		tokens: c.Tokens,
	}
}

const userColumns = `user_id, username, email, display_name, avatar, bio,
	quizzes_taken, quizzes_created, average_score, highest_score,
	rooms_joined, rooms_created, is_active, last_login, create_time`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.UserID, &u.Username, &u.Email, &u.DisplayName, &u.Avatar, &u.Bio,
		&u.Stats.QuizzesTaken, &u.Stats.QuizzesCreated, &u.Stats.AverageScore, &u.Stats.HighestScore,
		&u.Stats.RoomsJoined, &u.Stats.RoomsCreated, &u.IsActive, &u.LastLogin, &u.CreatedAt)
	return u, err
}

type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

type RegisterResponse struct {
	User   domain.User
	Tokens TokenPair
}

// Register creates a local-auth user. Username and email are stored
// lowercased; duplicates fail with CodeAlreadyExists.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if !usernameRx.MatchString(req.Username) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("username can only contain letters, numbers, dots and underscores"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	u := domain.User{
		UserID:      id.String(),
		Username:    strings.ToLower(req.Username),
		Email:       strings.ToLower(req.Email),
		DisplayName: req.DisplayName,
		IsActive:    true,
		LastLogin:   time.Now(),
		CreatedAt:   time.Now(),
	}

	const stmt = `
INSERT INTO users (user_id, username, email, display_name, password_hash, is_active, last_login, create_time)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7);`

	_, err = s.db.Exec(ctx, stmt, u.UserID, u.Username, u.Email, u.DisplayName, hash, u.LastLogin, u.CreatedAt)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("username or email already exists"),
			errors.WithCause(err),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	tokens, err := s.tokens.Pair(u.UserID)
	if err != nil {
		return nil, err
	}

	return &RegisterResponse{User: u, Tokens: tokens}, nil
}

type LoginRequest struct {
	// Identifier is a username or email.
	Identifier string
	Password   string
}

type LoginResponse struct {
	User   domain.User
	Tokens TokenPair
}

// Login authenticates by username or email and updates last_login.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	ident := strings.ToLower(req.Identifier)

	stmt := fmt.Sprintf(`SELECT %s, password_hash FROM users WHERE username = $1 OR email = $1;`, userColumns)

	var (
		u    domain.User
		hash []byte
	)
	err := s.db.QueryRow(ctx, stmt, ident).Scan(
		&u.UserID, &u.Username, &u.Email, &u.DisplayName, &u.Avatar, &u.Bio,
		&u.Stats.QuizzesTaken, &u.Stats.QuizzesCreated, &u.Stats.AverageScore, &u.Stats.HighestScore,
		&u.Stats.RoomsJoined, &u.Stats.RoomsCreated, &u.IsActive, &u.LastLogin, &u.CreatedAt,
		&hash,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errInvalidCredentials(err)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	if !u.IsActive {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("account has been deactivated"))
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		return nil, errInvalidCredentials(nil)
	}

	u.LastLogin = time.Now()
	if _, err := s.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE user_id = $1;`, u.UserID, u.LastLogin); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	tokens, err := s.tokens.Pair(u.UserID)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{User: u, Tokens: tokens}, nil
}

func errInvalidCredentials(cause error) error {
	return errors.New(errors.CodeUnauthenticated,
		errors.WithMessagef("invalid credentials"),
		errors.WithCause(cause),
	)
}

// GetUser loads a user by ID. Used by the API middleware on every
// authenticated request, so inactive accounts are rejected here.
func (s *Service) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	stmt := fmt.Sprintf(`SELECT %s FROM users WHERE user_id = $1;`, userColumns)

	u, err := scanUser(s.db.QueryRow(ctx, stmt, userID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("user not found or no longer exists"))
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	if !u.IsActive {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("account has been deactivated"))
	}

	return &u, nil
}

// GetUserByUsername resolves a username for host-initiated member invites.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	stmt := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1;`, userColumns)

	u, err := scanUser(s.db.QueryRow(ctx, stmt, strings.ToLower(username)))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user not found: %s", username))
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &u, nil
}

type UpdateProfileRequest struct {
	UserID      string
	DisplayName string
	Bio         string
	Avatar      string
}

func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.User, error) {
	const stmt = `
UPDATE users SET display_name = COALESCE(NULLIF($2, ''), display_name), bio = $3, avatar = $4
WHERE user_id = $1;`

	if _, err := s.db.Exec(ctx, stmt, req.UserID, req.DisplayName, req.Bio, req.Avatar); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return s.GetUser(ctx, req.UserID)
}

// IsUsernameAvailable reports whether no user holds the given username.
func (s *Service) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1);`,
		strings.ToLower(username),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}

	return !exists, nil
}

// VerifyAccess exposes token verification to the API middleware.
func (s *Service) VerifyAccess(token string) (string, error) {
	return s.tokens.VerifyAccess(token)
}

// IncrementRoomsCreated bumps the creator's room counter.
func (s *Service) IncrementRoomsCreated(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET rooms_created = rooms_created + 1 WHERE user_id = $1;`, userID)
	return err
}

// IncrementRoomsJoined bumps the joiner's room counter.
func (s *Service) IncrementRoomsJoined(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET rooms_joined = rooms_joined + 1 WHERE user_id = $1;`, userID)
	return err
}
