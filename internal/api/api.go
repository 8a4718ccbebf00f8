// Package api exposes the REST surface. Handlers decode typed requests,
// call the services, and wrap results in the {status, message, data}
// envelope the web client expects.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/quizie/quizie/internal/attempt"
	"github.com/quizie/quizie/internal/auth"
	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/errors"
	"github.com/quizie/quizie/internal/event"
	"github.com/quizie/quizie/internal/leaderboard"
	"github.com/quizie/quizie/internal/quiz"
	"github.com/quizie/quizie/internal/room"
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Config struct {
	Router       *gin.Engine
	EventBus     *event.Bus
	Auth         *auth.Service
	Quiz         *quiz.Service
	Attempts     *attempt.Service
	Rooms        *room.Service
	Leaderboard  *leaderboard.Service
	Redis        Redis
	PubsubPrefix string
}

type API struct {
	auth     *auth.Service
	quiz     *quiz.Service
	attempts *attempt.Service
	rooms    *room.Service
	lb       *leaderboard.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		auth:     c.Auth,
		quiz:     c.Quiz,
		attempts: c.Attempts,
		rooms:    c.Rooms,
		lb:       c.Leaderboard,
		redis:    c.Redis,
		prefix:   c.PubsubPrefix,
	}

	a.registerRoutes(c.Router)

	c.EventBus.Subscribe(domain.EventNameRoomLeaderboardBroadcast, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardBroadcast(ctx, e.(domain.EventRoomLeaderboardBroadcast))
	})
	c.EventBus.Subscribe(domain.EventNameRoomCompleted, func(ctx context.Context, e event.Event) error {
		return a.PublishRoomCompleted(ctx, e.(domain.EventRoomCompleted))
	})

	return a
}

func (a *API) registerRoutes(e *gin.Engine) {
	root := e.Group("/api")

	root.GET("/health", a.health)

	ar := root.Group("/auth")
	ar.POST("/register", a.register)
	ar.POST("/login", a.login)
	ar.GET("/check-username/:username", a.checkUsername)
	ar.GET("/me", a.authenticate, a.getProfile)
	ar.PUT("/profile", a.authenticate, a.updateProfile)

	qr := root.Group("/quiz")
	qr.POST("/generate", a.generateQuiz)
	qr.GET("", a.listQuizzes)
	qr.GET("/stats", a.quizStats)
	qr.GET("/:id", a.getQuiz)
	qr.GET("/:id/preview", a.previewQuiz)
	qr.DELETE("/:id", a.deleteQuiz)

	tr := root.Group("/attempt")
	tr.POST("/submit", a.submitAttempt)
	tr.GET("/history", a.attemptHistory)
	tr.GET("/stats", a.attemptStats)
	tr.GET("/quiz/:quizId", a.attemptsByQuiz)
	tr.GET("/:id", a.getAttempt)
	tr.GET("/:id/review", a.attemptReview)
	tr.DELETE("/:id", a.deleteAttempt)

	rr := root.Group("/rooms", a.authenticate)
	rr.POST("/create", a.createRoom)
	rr.POST("/join/:roomCode", a.joinRoom)
	rr.GET("/my-rooms", a.myRooms)
	rr.POST("/:roomId/add-member", a.addMember)
	rr.POST("/:roomId/leave", a.leaveRoom)
	rr.POST("/:roomId/start-quiz", a.startRoomQuiz)
	rr.POST("/:roomId/submit-attempt", a.submitRoomAttempt)
	rr.GET("/:roomId", a.getRoom)
	rr.GET("/:roomId/leaderboard", a.roomLeaderboard)
	rr.DELETE("/:roomId", a.deleteRoom)
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Quiz System API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// authenticate verifies the Bearer access token and attaches the user.
func (a *API) authenticate(c *gin.Context) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		abortError(c, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("no token provided, please log in")))
		return
	}

	userID, err := a.auth.VerifyAccess(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		abortError(c, err)
		return
	}

	u, err := a.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.Set(ctxUserKey, u)
	c.Next()
}

const ctxUserKey = "user"

func currentUser(c *gin.Context) *domain.User {
	return c.MustGet(ctxUserKey).(*domain.User)
}

func respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{"status": "success"}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), gin.H{
		"status":  "error",
		"message": e.Message,
	})
}

func abortError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{
		"status":  "error",
		"message": e.Message,
	})
}

func badRequest(c *gin.Context, err error) {
	respondError(c, errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("validation failed: %v", err)))
}

// pageParams reads ?page and ?limit with the defaults the client relies on.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func paginate(page, limit, total int) pagination {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
