// Package scoring computes per-question correctness and the aggregate score
// of a quiz attempt. It performs no I/O and never fails: malformed answer
// entries are normalized into the wrong/unattempted buckets so a scoring pass
// always produces a deterministic result.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/quizie/quizie/internal/domain"
)

// Evaluate classifies every submitted answer against the quiz's answer key and
// returns the aggregate score. IsCorrect flags are written back onto the given
// answer slice.
//
// Classification rules:
//   - nil SelectedAnswer: unattempted, even when the question does not exist.
//   - matching question and equal CorrectAnswer: correct.
//   - anything else, including an unknown questionId: wrong.
//
// Total is the number of quiz questions, not the number of answer entries, so
// missing or extra entries cannot inflate the score. Questions with no answer
// entry at all count as unattempted.
func Evaluate(questions []domain.Question, answers []domain.UserAnswer) domain.Score {
	byID := make(map[int]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.QuestionID] = q
	}

	var correct, wrong, unattempted int
	seen := make(map[int]bool, len(answers))
	for i := range answers {
		a := &answers[i]
		q, found := byID[a.QuestionID]
		if found {
			seen[a.QuestionID] = true
		}

		switch {
		case a.SelectedAnswer == nil:
			unattempted++
			a.IsCorrect = false
		case found && *a.SelectedAnswer == q.CorrectAnswer:
			correct++
			a.IsCorrect = true
		default:
			wrong++
			a.IsCorrect = false
		}
	}
	unattempted += len(questions) - len(seen)

	total := len(questions)
	return domain.Score{
		Total:       total,
		Correct:     correct,
		Wrong:       wrong,
		Unattempted: unattempted,
		Percentage:  percentage(correct, total),
	}
}

// percentage is correct/total*100 rounded to 2 decimals, 0 for an empty quiz.
func percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}

	p := decimal.NewFromInt(int64(correct)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		Round(2)

	return p.InexactFloat64()
}

// Grade derives the letter grade from a percentage. It is a view, recomputed
// on read and never persisted.
func Grade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}
