package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/scoring"
)

func answer(id int, selected string) domain.UserAnswer {
	return domain.UserAnswer{QuestionID: id, SelectedAnswer: &selected}
}

func skipped(id int) domain.UserAnswer {
	return domain.UserAnswer{QuestionID: id}
}

func questions(correctAnswers ...string) []domain.Question {
	qs := make([]domain.Question, 0, len(correctAnswers))
	for i, ca := range correctAnswers {
		qs = append(qs, domain.Question{
			QuestionID:    i + 1,
			CorrectAnswer: ca,
		})
	}
	return qs
}

func TestEvaluate(t *testing.T) {
	type (
		inputs struct {
			questions []domain.Question
			answers   []domain.UserAnswer
		}

		outputs struct {
			score   domain.Score
			answers []domain.UserAnswer
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should score 1 correct, 1 wrong, 1 unattempted for a 3-question quiz": {
			arrange: func() inputs {
				return inputs{
					questions: questions("A", "B", "C"),
					answers: []domain.UserAnswer{
						answer(1, "A"),
						answer(2, "C"),
						skipped(3),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, domain.Score{
					Total:       3,
					Correct:     1,
					Wrong:       1,
					Unattempted: 1,
					Percentage:  33.33,
				}, out.score)
			},
		},

		"should write isCorrect back onto the answer entries": {
			arrange: func() inputs {
				return inputs{
					questions: questions("A", "B"),
					answers: []domain.UserAnswer{
						answer(1, "A"),
						answer(2, "C"),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, out.answers[0].IsCorrect)
				require.False(t, out.answers[1].IsCorrect)
			},
		},

		"should return all-zero score with percentage 0 for an empty quiz": {
			arrange: func() inputs {
				return inputs{}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, domain.Score{}, out.score)
			},
		},

		"should count a nil answer as unattempted even when the question does not exist": {
			arrange: func() inputs {
				return inputs{
					questions: questions("A"),
					answers: []domain.UserAnswer{
						answer(1, "A"),
						skipped(99),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 1, out.score.Unattempted)
				require.False(t, out.answers[1].IsCorrect)
			},
		},

		"should count an answer to an unknown question as wrong": {
			arrange: func() inputs {
				return inputs{
					questions: questions("A", "B"),
					answers: []domain.UserAnswer{
						answer(1, "A"),
						answer(2, "B"),
						answer(99, "A"),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 2, out.score.Correct)
				require.Equal(t, 1, out.score.Wrong)
				require.False(t, out.answers[2].IsCorrect)
			},
		},

		"should count questions with no answer entry as unattempted": {
			arrange: func() inputs {
				return inputs{
					questions: questions("A", "B", "C", "D"),
					answers: []domain.UserAnswer{
						answer(1, "A"),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, domain.Score{
					Total:       4,
					Correct:     1,
					Wrong:       0,
					Unattempted: 3,
					Percentage:  25,
				}, out.score)
			},
		},

		"should keep correct + wrong + unattempted equal to the question count": {
			arrange: func() inputs {
				return inputs{
					questions: questions("A", "B", "C", "D", "A"),
					answers: []domain.UserAnswer{
						answer(1, "A"),
						answer(2, "A"),
						skipped(3),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				s := out.score
				require.Equal(t, s.Total, s.Correct+s.Wrong+s.Unattempted)
				require.Equal(t, 5, s.Total)
			},
		},

		"should round the percentage to 2 decimals": {
			arrange: func() inputs {
				return inputs{
					questions: questions("A", "B", "C"),
					answers: []domain.UserAnswer{
						answer(1, "A"),
						answer(2, "B"),
						answer(3, "D"),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 66.67, out.score.Percentage)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()

			score := scoring.Evaluate(in.questions, in.answers)

			tt.assert(t, outputs{score: score, answers: in.answers})
		})
	}
}

func TestGrade(t *testing.T) {
	tests := map[string]struct {
		percentage float64
		want       string
	}{
		"exactly 90 is A+":    {percentage: 90, want: "A+"},
		"89.99 is A":          {percentage: 89.99, want: "A"},
		"exactly 80 is A":     {percentage: 80, want: "A"},
		"exactly 70 is B":     {percentage: 70, want: "B"},
		"exactly 60 is C":     {percentage: 60, want: "C"},
		"exactly 50 is D":     {percentage: 50, want: "D"},
		"49.99 is F":          {percentage: 49.99, want: "F"},
		"zero is F":           {percentage: 0, want: "F"},
		"perfect score is A+": {percentage: 100, want: "A+"},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, scoring.Grade(tt.percentage))
		})
	}
}
