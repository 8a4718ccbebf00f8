package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/quiz"
)

type quizView struct {
	ID             string            `json:"id"`
	QuizTitle      string            `json:"quizTitle"`
	Topic          string            `json:"topic"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	TotalQuestions int               `json:"totalQuestions"`
	TimerInMinutes int               `json:"timerInMinutes"`
	Description    string            `json:"description,omitempty"`
	GeneratedBy    string            `json:"generatedBy"`
	Questions      []domain.Question `json:"questions,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func newQuizView(q domain.Quiz) quizView {
	return quizView{
		ID:             q.QuizID,
		QuizTitle:      q.QuizTitle,
		Topic:          q.Topic,
		Difficulty:     q.Difficulty,
		TotalQuestions: q.TotalQuestions,
		TimerInMinutes: q.TimerInMinutes,
		Description:    q.Description,
		GeneratedBy:    q.GeneratedBy,
		Questions:      q.Questions,
		CreatedAt:      q.CreatedAt,
	}
}

type generateQuizRequest struct {
	QuizTitle             string            `json:"quizTitle" binding:"max=200"`
	Topic                 string            `json:"topic" binding:"required,min=2,max=200"`
	NumberOfQuestions     int               `json:"numberOfQuestions" binding:"required"`
	DifficultyLevel       domain.Difficulty `json:"difficultyLevel" binding:"required"`
	TimerInMinutes        int               `json:"timerInMinutes" binding:"required"`
	AdditionalDescription string            `json:"additionalDescription" binding:"max=1000"`
}

func (a *API) generateQuiz(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	q, err := a.quiz.Generate(c.Request.Context(), quiz.GenerateRequest{
		QuizTitle:             req.QuizTitle,
		Topic:                 req.Topic,
		NumberOfQuestions:     req.NumberOfQuestions,
		DifficultyLevel:       req.DifficultyLevel,
		TimerInMinutes:        req.TimerInMinutes,
		AdditionalDescription: req.AdditionalDescription,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "quiz generated successfully", gin.H{"quiz": newQuizView(*q)})
}

func (a *API) listQuizzes(c *gin.Context) {
	page, limit := pageParams(c)

	quizzes, total, err := a.quiz.List(c.Request.Context(), quiz.ListRequest{
		Page:       page,
		Limit:      limit,
		Topic:      c.Query("topic"),
		Difficulty: domain.Difficulty(c.Query("difficulty")),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]quizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, newQuizView(q))
	}

	respond(c, http.StatusOK, "", gin.H{
		"quizzes":    views,
		"pagination": paginate(page, limit, total),
	})
}

func (a *API) getQuiz(c *gin.Context) {
	q, err := a.quiz.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"quiz": newQuizView(*q)})
}

// previewQuiz returns quiz metadata without questions, so answer keys never
// reach a client before the exam starts.
func (a *API) previewQuiz(c *gin.Context) {
	q, err := a.quiz.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"quiz": newQuizView(*q)})
}

func (a *API) deleteQuiz(c *gin.Context) {
	if err := a.quiz.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "quiz deleted successfully", nil)
}

func (a *API) quizStats(c *gin.Context) {
	stats, err := a.quiz.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", stats)
}
