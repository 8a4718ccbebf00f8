// Package attempt owns the quiz attempt lifecycle: an attempt is created and
// scored atomically at submission time and never mutated afterward.
package attempt

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
	"github.com/quizie/quizie/internal/quiz"
	"github.com/quizie/quizie/internal/scoring"
	"github.com/quizie/quizie/internal/telemetry"
)

type Config struct {
	DB   *pgxpool.Pool
	Quiz *quiz.Service
}

type Service struct {
	db   *pgxpool.Pool
	quiz *quiz.Service
}

func NewService(c Config) *Service {
	return &Service{
		db:   c.DB,
		quiz: c.Quiz,
	}
}

type SubmitRequest struct {
	QuizID        string
	UserAnswers   []domain.UserAnswer
	TimeTaken     int
	AutoSubmitted bool
}

type SubmitResponse struct {
	AttemptID     string       `json:"attemptId"`
	Score         domain.Score `json:"score"`
	Grade         string       `json:"grade"`
	TimeTaken     int          `json:"timeTaken"`
	SubmittedAt   time.Time    `json:"submittedAt"`
	AutoSubmitted bool         `json:"isAutoSubmitted"`
}

// Submit scores the answers against the quiz's answer key, snapshots the quiz
// metadata, and persists the attempt.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	q, err := s.quiz.GetByID(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	score := scoring.Evaluate(q.Questions, req.UserAnswers)

	timeRemaining := q.DurationInSeconds() - req.TimeTaken
	if timeRemaining < 0 {
		timeRemaining = 0
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate attempt ID: %w", err)
	}

	a := domain.QuizAttempt{
		AttemptID: id.String(),
		QuizID:    q.QuizID,
		Snapshot: domain.QuizSnapshot{
			QuizTitle:      q.QuizTitle,
			Topic:          q.Topic,
			Difficulty:     q.Difficulty,
			TotalQuestions: q.TotalQuestions,
			TimerInMinutes: q.TimerInMinutes,
		},
		UserAnswers:   req.UserAnswers,
		Score:         score,
		TimeTaken:     req.TimeTaken,
		TimeRemaining: timeRemaining,
		SubmittedAt:   time.Now(),
		AutoSubmitted: req.AutoSubmitted,
	}

	if err := s.insertAttempt(ctx, &a); err != nil {
		return nil, err
	}

	telemetry.AttemptsScored.Inc()

	return &SubmitResponse{
		AttemptID:     a.AttemptID,
		Score:         a.Score,
		Grade:         scoring.Grade(a.Score.Percentage),
		TimeTaken:     a.TimeTaken,
		SubmittedAt:   a.SubmittedAt,
		AutoSubmitted: a.AutoSubmitted,
	}, nil
}

func (s *Service) insertAttempt(ctx context.Context, a *domain.QuizAttempt) error {
	snapshot, err := json.Marshal(a.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	answers, err := json.Marshal(a.UserAnswers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	const stmt = `
INSERT INTO attempts (attempt_id, quiz_id, snapshot, answers,
	score_total, score_correct, score_wrong, score_unattempted, score_percentage,
	time_taken, time_remaining, submitted_at, auto_submitted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	_, err = s.db.Exec(ctx, stmt,
		a.AttemptID, a.QuizID, snapshot, answers,
		a.Score.Total, a.Score.Correct, a.Score.Wrong, a.Score.Unattempted, a.Score.Percentage,
		a.TimeTaken, a.TimeRemaining, a.SubmittedAt, a.AutoSubmitted)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	return nil
}

const attemptColumns = `attempt_id, quiz_id, snapshot, answers,
	score_total, score_correct, score_wrong, score_unattempted, score_percentage,
	time_taken, time_remaining, submitted_at, auto_submitted`

func scanAttempt(row pgx.Row) (domain.QuizAttempt, error) {
	var (
		a        domain.QuizAttempt
		snapshot []byte
		answers  []byte
	)
	err := row.Scan(&a.AttemptID, &a.QuizID, &snapshot, &answers,
		&a.Score.Total, &a.Score.Correct, &a.Score.Wrong, &a.Score.Unattempted, &a.Score.Percentage,
		&a.TimeTaken, &a.TimeRemaining, &a.SubmittedAt, &a.AutoSubmitted)
	if err != nil {
		return a, err
	}

	if err := json.Unmarshal(snapshot, &a.Snapshot); err != nil {
		return a, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal(answers, &a.UserAnswers); err != nil {
		return a, fmt.Errorf("unmarshal answers: %w", err)
	}

	return a, nil
}

// GetByID returns the full attempt including its answers.
func (s *Service) GetByID(ctx context.Context, attemptID string) (*domain.QuizAttempt, error) {
	stmt := fmt.Sprintf(`SELECT %s FROM attempts WHERE attempt_id = $1;`, attemptColumns)

	a, err := scanAttempt(s.db.QueryRow(ctx, stmt, attemptID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("attempt not found: %s", attemptID))
	}
	if err != nil {
		return nil, fmt.Errorf("select attempt: %w", err)
	}

	return &a, nil
}

type ReviewItem struct {
	QuestionID    int            `json:"questionId"`
	QuestionText  string         `json:"questionText"`
	Options       domain.Options `json:"options"`
	CorrectAnswer string         `json:"correctAnswer"`
	UserAnswer    *string        `json:"userAnswer"`
	IsCorrect     bool           `json:"isCorrect"`
	Explanation   string         `json:"explanation"`
}

type Review struct {
	AttemptID   string              `json:"attemptId"`
	QuizInfo    domain.QuizSnapshot `json:"quizInfo"`
	Score       domain.Score        `json:"score"`
	Grade       string              `json:"grade"`
	TimeTaken   int                 `json:"timeTaken"`
	SubmittedAt time.Time           `json:"submittedAt"`
	Review      []ReviewItem        `json:"review"`
}

// GetReview joins the attempt's answers with the original quiz questions,
// exposing correct answers and explanations. Requires the quiz to still exist.
func (s *Service) GetReview(ctx context.Context, attemptID string) (*Review, error) {
	a, err := s.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	q, err := s.quiz.GetByID(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]domain.UserAnswer, len(a.UserAnswers))
	for _, ua := range a.UserAnswers {
		byID[ua.QuestionID] = ua
	}

	items := make([]ReviewItem, 0, len(q.Questions))
	for _, question := range q.Questions {
		item := ReviewItem{
			QuestionID:    question.QuestionID,
			QuestionText:  question.QuestionText,
			Options:       question.Options,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
		}
		if ua, ok := byID[question.QuestionID]; ok {
			item.UserAnswer = ua.SelectedAnswer
			item.IsCorrect = ua.IsCorrect
		}
		items = append(items, item)
	}

	return &Review{
		AttemptID:   a.AttemptID,
		QuizInfo:    a.Snapshot,
		Score:       a.Score,
		Grade:       scoring.Grade(a.Score.Percentage),
		TimeTaken:   a.TimeTaken,
		SubmittedAt: a.SubmittedAt,
		Review:      items,
	}, nil
}

const attemptSummaryColumns = `attempt_id, quiz_id, snapshot,
	score_total, score_correct, score_wrong, score_unattempted, score_percentage,
	time_taken, time_remaining, submitted_at, auto_submitted`

func scanAttemptSummary(r pgx.CollectableRow) (domain.QuizAttempt, error) {
	var (
		a        domain.QuizAttempt
		snapshot []byte
	)
	err := r.Scan(&a.AttemptID, &a.QuizID, &snapshot,
		&a.Score.Total, &a.Score.Correct, &a.Score.Wrong, &a.Score.Unattempted, &a.Score.Percentage,
		&a.TimeTaken, &a.TimeRemaining, &a.SubmittedAt, &a.AutoSubmitted)
	if err != nil {
		return a, err
	}

	if err := json.Unmarshal(snapshot, &a.Snapshot); err != nil {
		return a, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return a, nil
}

// ListByQuiz returns all attempts for a quiz, newest first, without answers.
func (s *Service) ListByQuiz(ctx context.Context, quizID string) ([]domain.QuizAttempt, error) {
	stmt := fmt.Sprintf(`SELECT %s FROM attempts WHERE quiz_id = $1 ORDER BY submitted_at DESC;`, attemptSummaryColumns)

	rows, err := s.db.Query(ctx, stmt, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, scanAttemptSummary)
	if err != nil {
		return nil, fmt.Errorf("collect attempts: %w", err)
	}

	return attempts, nil
}

// History returns paginated attempts, newest first, without answers.
func (s *Service) History(ctx context.Context, page, limit int) ([]domain.QuizAttempt, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM attempts;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}

	stmt := fmt.Sprintf(`SELECT %s FROM attempts ORDER BY submitted_at DESC LIMIT $1 OFFSET $2;`, attemptSummaryColumns)

	rows, err := s.db.Query(ctx, stmt, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, scanAttemptSummary)
	if err != nil {
		return nil, 0, fmt.Errorf("collect history: %w", err)
	}

	return attempts, total, nil
}

type OverallStats struct {
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"`
	HighestScore  float64 `json:"highestScore"`
	LowestScore   float64 `json:"lowestScore"`
}

type PerformancePoint struct {
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type Stats struct {
	Overall     OverallStats         `json:"overall"`
	Recent      []domain.QuizAttempt `json:"recent"`
	Performance []PerformancePoint   `json:"performance"`
}

// GetStats aggregates attempt statistics plus recent attempts and a
// performance-over-time series.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	const overallStmt = `
SELECT COUNT(*),
       COALESCE(AVG(score_percentage), 0),
       COALESCE(MAX(score_percentage), 0),
       COALESCE(MIN(score_percentage), 0)
FROM attempts;`

	err := s.db.QueryRow(ctx, overallStmt).Scan(
		&stats.Overall.TotalAttempts, &stats.Overall.AverageScore,
		&stats.Overall.HighestScore, &stats.Overall.LowestScore)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}

	stmt := fmt.Sprintf(`SELECT %s FROM attempts ORDER BY submitted_at DESC LIMIT 5;`, attemptSummaryColumns)
	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	stats.Recent, err = pgx.CollectRows(rows, scanAttemptSummary)
	if err != nil {
		return nil, fmt.Errorf("collect recent attempts: %w", err)
	}

	const perfStmt = `
SELECT score_percentage, submitted_at FROM attempts ORDER BY submitted_at ASC LIMIT 20;`
	rows, err = s.db.Query(ctx, perfStmt)
	if err != nil {
		return nil, fmt.Errorf("performance series: %w", err)
	}
	stats.Performance, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (PerformancePoint, error) {
		var p PerformancePoint
		err := r.Scan(&p.Percentage, &p.SubmittedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect performance series: %w", err)
	}

	return stats, nil
}

// Delete removes an attempt. Attempts are otherwise immutable.
func (s *Service) Delete(ctx context.Context, attemptID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM attempts WHERE attempt_id = $1;`, attemptID)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("attempt not found: %s", attemptID))
	}

	return nil
}
