package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizie/quizie/internal/attempt"
	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/scoring"
)

type attemptView struct {
	ID            string              `json:"id"`
	QuizID        string              `json:"quizId"`
	QuizInfo      domain.QuizSnapshot `json:"quizInfo"`
	Score         domain.Score        `json:"score"`
	Grade         string              `json:"grade"`
	TimeTaken     int                 `json:"timeTaken"`
	TimeRemaining int                 `json:"timeRemaining"`
	SubmittedAt   time.Time           `json:"submittedAt"`
	AutoSubmitted bool                `json:"isAutoSubmitted"`
}

func newAttemptView(a domain.QuizAttempt) attemptView {
	return attemptView{
		ID:            a.AttemptID,
		QuizID:        a.QuizID,
		QuizInfo:      a.Snapshot,
		Score:         a.Score,
		Grade:         scoring.Grade(a.Score.Percentage),
		TimeTaken:     a.TimeTaken,
		TimeRemaining: a.TimeRemaining,
		SubmittedAt:   a.SubmittedAt,
		AutoSubmitted: a.AutoSubmitted,
	}
}

func newAttemptViews(attempts []domain.QuizAttempt) []attemptView {
	views := make([]attemptView, 0, len(attempts))
	for _, a := range attempts {
		views = append(views, newAttemptView(a))
	}
	return views
}

type submitAttemptRequest struct {
	QuizID        string              `json:"quizId" binding:"required"`
	UserAnswers   []domain.UserAnswer `json:"userAnswers" binding:"required"`
	TimeTaken     int                 `json:"timeTaken" binding:"min=0"`
	AutoSubmitted bool                `json:"isAutoSubmitted"`
}

func (a *API) submitAttempt(c *gin.Context) {
	var req submitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := a.attempts.Submit(c.Request.Context(), attempt.SubmitRequest{
		QuizID:        req.QuizID,
		UserAnswers:   req.UserAnswers,
		TimeTaken:     req.TimeTaken,
		AutoSubmitted: req.AutoSubmitted,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "quiz submitted successfully", res)
}

func (a *API) attemptHistory(c *gin.Context) {
	page, limit := pageParams(c)

	attempts, total, err := a.attempts.History(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{
		"attempts":   newAttemptViews(attempts),
		"pagination": paginate(page, limit, total),
	})
}

func (a *API) attemptStats(c *gin.Context) {
	stats, err := a.attempts.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", stats)
}

func (a *API) attemptsByQuiz(c *gin.Context) {
	attempts, err := a.attempts.ListByQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"attempts": newAttemptViews(attempts)})
}

func (a *API) getAttempt(c *gin.Context) {
	res, err := a.attempts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	v := newAttemptView(*res)
	respond(c, http.StatusOK, "", gin.H{
		"attempt":     v,
		"userAnswers": res.UserAnswers,
	})
}

func (a *API) attemptReview(c *gin.Context) {
	review, err := a.attempts.GetReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", review)
}

func (a *API) deleteAttempt(c *gin.Context) {
	if err := a.attempts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "attempt deleted successfully", nil)
}
