// Package genquiz is the quiz generation collaborator: it prompts an
// OpenAI-compatible LLM endpoint and validates the returned question set.
package genquiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/errors"
	"github.com/quizie/quizie/internal/telemetry"
)

const (
	defaultAPIURL  = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel   = "llama-3.3-70b-versatile"
	defaultTimeout = 60 * time.Second

	maxRetries = 3
	// retryStep delays attempt n by n*retryStep.
	retryStep = 2 * time.Second
)

type Config struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	http   *resty.Client
	apiURL string
	apiKey string
	model  string
}

func NewClient(c Config) *Client {
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	return &Client{
		http: resty.New().
			SetTimeout(c.Timeout).
			SetHeader("Content-Type", "application/json"),
		apiURL: c.APIURL,
		apiKey: c.APIKey,
		model:  c.Model,
	}
}

// Params are the user inputs driving a generation request.
type Params struct {
	Topic                 string
	Difficulty            domain.Difficulty
	NumberOfQuestions     int
	AdditionalDescription string
}

// GeneratedQuiz is the validated LLM output.
type GeneratedQuiz struct {
	QuizTitle      string            `json:"quizTitle"`
	Topic          string            `json:"topic"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	TotalQuestions int               `json:"totalQuestions"`
	Questions      []domain.Question `json:"questions"`
}

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatRequest struct {
		Model          string        `json:"model"`
		Messages       []chatMessage `json:"messages"`
		Temperature    float64       `json:"temperature"`
		MaxTokens      int           `json:"max_tokens"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}

	chatResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
)

// GenerateQuiz prompts the LLM and returns a validated question set. Failed
// calls are retried up to maxRetries times with a linearly increasing delay.
func (c *Client) GenerateQuiz(ctx context.Context, p Params) (*GeneratedQuiz, error) {
	if c.apiKey == "" {
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("quiz generation API key is not configured"))
	}

	prompt := BuildPrompt(p)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		q, err := c.callOnce(ctx, prompt, p.NumberOfQuestions)
		if err == nil {
			return q, nil
		}
		lastErr = err

		slog.WarnContext(ctx, fmt.Sprintf("genquiz: attempt %d failed", attempt), "error", err)

		if attempt < maxRetries {
			telemetry.GenerationRetries.Inc()
			select {
			case <-time.After(time.Duration(attempt) * retryStep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, errors.New(errors.CodeInternal,
		errors.WithMessagef("failed to generate quiz after %d attempts", maxRetries),
		errors.WithCause(lastErr),
	)
}

func (c *Client) callOnce(ctx context.Context, prompt string, wantQuestions int) (*GeneratedQuiz, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an expert quiz generator. You always return valid JSON with no additional text or markdown formatting."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   8000,
	}
	req.ResponseFormat.Type = "json_object"

	var resp chatResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("call LLM: %w", err)
	}

	if r.IsError() {
		msg := "LLM API error"
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, fmt.Errorf("LLM API status %d: %s", r.StatusCode(), msg)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	var q GeneratedQuiz
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Choices[0].Message.Content)), &q); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}

	if err := Validate(&q, wantQuestions); err != nil {
		return nil, fmt.Errorf("validate LLM response: %w", err)
	}

	return &q, nil
}

// Validate checks the generated quiz against the contract the prompt demands:
// exact question count, four non-empty options each, one correct answer label,
// sequential 1-based question IDs, and an explanation per question.
func Validate(q *GeneratedQuiz, wantQuestions int) error {
	if len(q.Questions) != wantQuestions {
		return fmt.Errorf("expected %d questions, got %d", wantQuestions, len(q.Questions))
	}
	if q.QuizTitle == "" {
		return fmt.Errorf("missing quizTitle")
	}

	for i, question := range q.Questions {
		if question.QuestionID != i+1 {
			return fmt.Errorf("question %d: expected questionId %d, got %d", i, i+1, question.QuestionID)
		}
		if question.QuestionText == "" {
			return fmt.Errorf("question %d: empty questionText", question.QuestionID)
		}
		o := question.Options
		if o.A == "" || o.B == "" || o.C == "" || o.D == "" {
			return fmt.Errorf("question %d: all four options are required", question.QuestionID)
		}
		switch question.CorrectAnswer {
		case "A", "B", "C", "D":
		default:
			return fmt.Errorf("question %d: invalid correctAnswer %q", question.QuestionID, question.CorrectAnswer)
		}
		if question.Explanation == "" {
			return fmt.Errorf("question %d: missing explanation", question.QuestionID)
		}
	}

	return nil
}
