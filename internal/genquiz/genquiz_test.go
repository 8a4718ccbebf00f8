package genquiz_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/genquiz"
)

func TestBuildPrompt(t *testing.T) {
	p := genquiz.Params{
		Topic:                 "Go concurrency",
		Difficulty:            domain.DifficultyMedium,
		NumberOfQuestions:     10,
		AdditionalDescription: "focus on channels",
	}

	prompt := genquiz.BuildPrompt(p)

	require.Contains(t, prompt, `"Go concurrency"`)
	require.Contains(t, prompt, "Generate exactly 10")
	require.Contains(t, prompt, "MEDIUM")
	require.Contains(t, prompt, "focus on channels")
	require.Contains(t, prompt, "questionId")
}

func TestBuildPrompt_NoAdditionalContext(t *testing.T) {
	prompt := genquiz.BuildPrompt(genquiz.Params{
		Topic:             "history",
		Difficulty:        domain.DifficultyEasy,
		NumberOfQuestions: 15,
	})

	require.NotContains(t, prompt, "ADDITIONAL CONTEXT")
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]struct {
		content string
		want    string
	}{
		"bare JSON": {
			content: `{"a":1}`,
			want:    `{"a":1}`,
		},

		"json fence": {
			content: "```json\n{\"a\":1}\n```",
			want:    `{"a":1}`,
		},

		"plain fence": {
			content: "```\n{\"a\":1}\n```",
			want:    `{"a":1}`,
		},

		"prose around the object": {
			content: "Here is your quiz:\n{\"a\":1}\nEnjoy!",
			want:    `{"a":1}`,
		},

		"leading whitespace": {
			content: "  \n{\"a\":1}",
			want:    `{"a":1}`,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, genquiz.ExtractJSON(tt.content))
		})
	}
}

func generated(n int) *genquiz.GeneratedQuiz {
	q := &genquiz.GeneratedQuiz{
		QuizTitle:      "Test Quiz",
		Topic:          "testing",
		Difficulty:     domain.DifficultyEasy,
		TotalQuestions: n,
	}
	for i := 1; i <= n; i++ {
		q.Questions = append(q.Questions, domain.Question{
			QuestionID:    i,
			QuestionText:  fmt.Sprintf("question %d", i),
			Options:       domain.Options{A: "a", B: "b", C: "c", D: "d"},
			CorrectAnswer: "A",
			Explanation:   "because",
		})
	}
	return q
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(q *genquiz.GeneratedQuiz)
		wantErr string
	}{
		"valid quiz passes": {
			mutate: func(q *genquiz.GeneratedQuiz) {},
		},

		"wrong question count": {
			mutate: func(q *genquiz.GeneratedQuiz) {
				q.Questions = q.Questions[:2]
			},
			wantErr: "expected 3 questions",
		},

		"missing title": {
			mutate: func(q *genquiz.GeneratedQuiz) {
				q.QuizTitle = ""
			},
			wantErr: "missing quizTitle",
		},

		"non-sequential question IDs": {
			mutate: func(q *genquiz.GeneratedQuiz) {
				q.Questions[1].QuestionID = 5
			},
			wantErr: "expected questionId 2",
		},

		"empty option": {
			mutate: func(q *genquiz.GeneratedQuiz) {
				q.Questions[0].Options.C = ""
			},
			wantErr: "all four options are required",
		},

		"correct answer outside A-D": {
			mutate: func(q *genquiz.GeneratedQuiz) {
				q.Questions[2].CorrectAnswer = "E"
			},
			wantErr: "invalid correctAnswer",
		},

		"missing explanation": {
			mutate: func(q *genquiz.GeneratedQuiz) {
				q.Questions[0].Explanation = ""
			},
			wantErr: "missing explanation",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			q := generated(3)
			tt.mutate(q)

			err := genquiz.Validate(q, 3)

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestClient_GenerateQuiz(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		content, err := json.Marshal(generated(10))
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": string(content)}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := genquiz.NewClient(genquiz.Config{
		APIURL: srv.URL,
		APIKey: "test-key",
	})

	q, err := c.GenerateQuiz(context.Background(), genquiz.Params{
		Topic:             "testing",
		Difficulty:        domain.DifficultyEasy,
		NumberOfQuestions: 10,
	})
	require.NoError(t, err)
	require.Equal(t, "Test Quiz", q.QuizTitle)
	require.Len(t, q.Questions, 10)
	require.True(t, strings.HasPrefix(gotAuth, "Bearer "), "should authenticate with a bearer token")
}

func TestClient_GenerateQuiz_NoAPIKey(t *testing.T) {
	c := genquiz.NewClient(genquiz.Config{})

	_, err := c.GenerateQuiz(context.Background(), genquiz.Params{
		Topic:             "testing",
		Difficulty:        domain.DifficultyEasy,
		NumberOfQuestions: 10,
	})
	require.ErrorContains(t, err, "API key")
}
