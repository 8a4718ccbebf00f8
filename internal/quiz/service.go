// Package quiz owns quiz creation (via the LLM generation collaborator) and
// retrieval. Quizzes are immutable once stored.
package quiz

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/errors"
	"github.com/quizie/quizie/internal/genquiz"
	"github.com/quizie/quizie/internal/telemetry"
)

// allowedQuestionCounts are the quiz sizes the generator accepts.
var allowedQuestionCounts = map[int]bool{
	10: true, 15: true, 20: true, 30: true, 40: true, 50: true, 100: true,
}

const (
	minTimerMinutes = 1
	maxTimerMinutes = 300
)

type Generator interface {
	GenerateQuiz(ctx context.Context, p genquiz.Params) (*genquiz.GeneratedQuiz, error)
}

type Config struct {
	DB        *pgxpool.Pool
	Generator Generator
}

type Service struct {
	db  *pgxpool.Pool
	gen Generator
}

func NewService(c Config) *Service {
	return &Service{
		db:  c.DB,
		gen: c.Generator,
	}
}

type GenerateRequest struct {
	QuizTitle             string
	Topic                 string
	NumberOfQuestions     int
	DifficultyLevel       domain.Difficulty
	TimerInMinutes        int
	AdditionalDescription string
}

// Generate produces a quiz through the LLM collaborator and persists it.
// The returned quiz includes its questions so the exam can start immediately.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*domain.Quiz, error) {
	if err := validateGenerateRequest(req); err != nil {
		return nil, err
	}

	generated, err := s.gen.GenerateQuiz(ctx, genquiz.Params{
		Topic:                 req.Topic,
		Difficulty:            req.DifficultyLevel,
		NumberOfQuestions:     req.NumberOfQuestions,
		AdditionalDescription: req.AdditionalDescription,
	})
	if err != nil {
		return nil, err
	}

	title := req.QuizTitle
	if title == "" {
		title = generated.QuizTitle
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate quiz ID: %w", err)
	}

	q := &domain.Quiz{
		QuizID:         id.String(),
		QuizTitle:      title,
		Topic:          generated.Topic,
		Difficulty:     req.DifficultyLevel,
		TotalQuestions: req.NumberOfQuestions,
		TimerInMinutes: req.TimerInMinutes,
		Description:    req.AdditionalDescription,
		GeneratedBy:    "GROK-LLM",
		Questions:      generated.Questions,
		CreatedAt:      time.Now(),
	}

	if err := s.insertQuiz(ctx, q); err != nil {
		return nil, err
	}

	telemetry.QuizzesGenerated.Inc()
	return q, nil
}

func validateGenerateRequest(req GenerateRequest) error {
	if req.Topic == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("topic is required"))
	}
	if !req.DifficultyLevel.Valid() {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid difficulty: %s", req.DifficultyLevel))
	}
	if !allowedQuestionCounts[req.NumberOfQuestions] {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unsupported question count: %d", req.NumberOfQuestions))
	}
	if req.TimerInMinutes < minTimerMinutes || req.TimerInMinutes > maxTimerMinutes {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("timer must be between %d and %d minutes", minTimerMinutes, maxTimerMinutes))
	}
	return nil
}

func (s *Service) insertQuiz(ctx context.Context, q *domain.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	const stmt = `
INSERT INTO quizzes (quiz_id, quiz_title, topic, difficulty, total_questions, timer_in_minutes, description, generated_by, questions, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	_, err = s.db.Exec(ctx, stmt,
		q.QuizID, q.QuizTitle, q.Topic, q.Difficulty, q.TotalQuestions,
		q.TimerInMinutes, q.Description, q.GeneratedBy, questions, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}

	return nil
}

// GetByID returns the full quiz including its questions.
func (s *Service) GetByID(ctx context.Context, quizID string) (*domain.Quiz, error) {
	const stmt = `
SELECT quiz_id, quiz_title, topic, difficulty, total_questions, timer_in_minutes, description, generated_by, questions, create_time
FROM quizzes WHERE quiz_id = $1;`

	var (
		q         domain.Quiz
		questions []byte
	)
	err := s.db.QueryRow(ctx, stmt, quizID).Scan(
		&q.QuizID, &q.QuizTitle, &q.Topic, &q.Difficulty, &q.TotalQuestions,
		&q.TimerInMinutes, &q.Description, &q.GeneratedBy, &questions, &q.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("quiz not found: %s", quizID))
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}

	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}

	return &q, nil
}

// Preview returns the quiz metadata without its questions.
func (s *Service) Preview(ctx context.Context, quizID string) (*domain.Quiz, error) {
	const stmt = `
SELECT quiz_id, quiz_title, topic, difficulty, total_questions, timer_in_minutes, description, generated_by, create_time
FROM quizzes WHERE quiz_id = $1;`

	var q domain.Quiz
	err := s.db.QueryRow(ctx, stmt, quizID).Scan(
		&q.QuizID, &q.QuizTitle, &q.Topic, &q.Difficulty, &q.TotalQuestions,
		&q.TimerInMinutes, &q.Description, &q.GeneratedBy, &q.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("quiz not found: %s", quizID))
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}

	return &q, nil
}

type ListRequest struct {
	Page       int
	Limit      int
	Topic      string
	Difficulty domain.Difficulty
}

// List returns quiz summaries, newest first, with the total row count for
// pagination. Topic filtering is a case-insensitive substring match.
func (s *Service) List(ctx context.Context, req ListRequest) ([]domain.Quiz, int, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 10
	}

	const stmt = `
SELECT quiz_id, quiz_title, topic, difficulty, total_questions, timer_in_minutes, description, generated_by, create_time,
       COUNT(*) OVER () AS total
FROM quizzes
WHERE ($1 = '' OR topic ILIKE '%' || $1 || '%')
  AND ($2 = '' OR difficulty = $2)
ORDER BY create_time DESC
LIMIT $3 OFFSET $4;`

	rows, err := s.db.Query(ctx, stmt, req.Topic, string(req.Difficulty), req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}

	var total int
	quizzes, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Quiz, error) {
		var q domain.Quiz
		err := r.Scan(&q.QuizID, &q.QuizTitle, &q.Topic, &q.Difficulty, &q.TotalQuestions,
			&q.TimerInMinutes, &q.Description, &q.GeneratedBy, &q.CreatedAt, &total)
		return q, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("collect quizzes: %w", err)
	}

	return quizzes, total, nil
}

// Delete removes a quiz. Historical attempts survive through their snapshots.
func (s *Service) Delete(ctx context.Context, quizID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM quizzes WHERE quiz_id = $1;`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("quiz not found: %s", quizID))
	}

	return nil
}

type Stats struct {
	TotalQuizzes int                       `json:"totalQuizzes"`
	AvgQuestions int                       `json:"avgQuestions"`
	ByDifficulty map[domain.Difficulty]int `json:"byDifficulty"`
}

// GetStats aggregates quiz counts and the per-difficulty breakdown.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	const stmt = `
SELECT difficulty, COUNT(*), COALESCE(AVG(total_questions), 0)
FROM quizzes GROUP BY difficulty;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("quiz stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByDifficulty: make(map[domain.Difficulty]int)}
	var weightedSum float64
	for rows.Next() {
		var (
			diff  domain.Difficulty
			count int
			avg   float64
		)
		if err := rows.Scan(&diff, &count, &avg); err != nil {
			return nil, fmt.Errorf("scan quiz stats: %w", err)
		}
		stats.ByDifficulty[diff] = count
		stats.TotalQuizzes += count
		weightedSum += avg * float64(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("quiz stats: %w", err)
	}

	if stats.TotalQuizzes > 0 {
		stats.AvgQuestions = int(weightedSum/float64(stats.TotalQuizzes) + 0.5)
	}

	return stats, nil
}
