package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizie/quizie/internal/domain"
	"github.com/quizie/quizie/internal/errors"
	"github.com/quizie/quizie/internal/leaderboard"
	"github.com/quizie/quizie/internal/room"
)

type roomView struct {
	ID          string              `json:"id"`
	RoomCode    string              `json:"roomCode"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Host        string              `json:"host"`
	QuizID      string              `json:"quizId,omitempty"`
	Status      domain.RoomStatus   `json:"status"`
	Settings    domain.RoomSettings `json:"settings"`
	Members     []domain.Member     `json:"members"`
	Session     domain.Session      `json:"session"`
	MemberCount int                 `json:"memberCount"`
	IsFull      bool                `json:"isFull"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func newRoomView(r domain.Room) roomView {
	return roomView{
		ID:          r.RoomID,
		RoomCode:    r.RoomCode,
		Name:        r.Name,
		Description: r.Description,
		Host:        r.HostID,
		QuizID:      r.QuizID,
		Status:      r.Status,
		Settings:    r.Settings,
		Members:     r.Members,
		Session:     r.Session,
		MemberCount: r.MemberCount(),
		IsFull:      r.IsFull(),
		CreatedAt:   r.CreatedAt,
	}
}

type createRoomRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description" binding:"max=500"`
	Settings    *domain.RoomSettings `json:"settings"`
}

func (a *API) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := a.rooms.Create(c.Request.Context(), room.CreateRequest{
		HostID:      currentUser(c).UserID,
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "room created successfully", gin.H{"room": newRoomView(*r)})
}

func (a *API) joinRoom(c *gin.Context) {
	r, err := a.rooms.JoinByCode(c.Request.Context(), c.Param("roomCode"), currentUser(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "joined room successfully", gin.H{"room": newRoomView(*r)})
}

func (a *API) myRooms(c *gin.Context) {
	rooms, err := a.rooms.MyRooms(c.Request.Context(), currentUser(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		views = append(views, newRoomView(r))
	}

	respond(c, http.StatusOK, "", gin.H{"rooms": views})
}

type addMemberRequest struct {
	Username string `json:"username" binding:"required"`
}

func (a *API) addMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := a.rooms.AddMemberByUsername(c.Request.Context(),
		c.Param("roomId"), currentUser(c).UserID, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "member added successfully", gin.H{"room": newRoomView(*r)})
}

func (a *API) leaveRoom(c *gin.Context) {
	if err := a.rooms.Leave(c.Request.Context(), c.Param("roomId"), currentUser(c).UserID); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "left room successfully", nil)
}

type startQuizRequest struct {
	QuizID string `json:"quizId" binding:"required"`
}

func (a *API) startRoomQuiz(c *gin.Context) {
	var req startQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := a.rooms.StartQuiz(c.Request.Context(),
		c.Param("roomId"), currentUser(c).UserID, req.QuizID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "quiz started", gin.H{"room": newRoomView(*r)})
}

type submitRoomAttemptRequest struct {
	AttemptID string `json:"attemptId" binding:"required"`
}

func (a *API) submitRoomAttempt(c *gin.Context) {
	var req submitRoomAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := a.rooms.SubmitAttempt(c.Request.Context(), room.SubmitAttemptRequest{
		RoomID:    c.Param("roomId"),
		UserID:    currentUser(c).UserID,
		AttemptID: req.AttemptID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "attempt submitted successfully", gin.H{"room": newRoomView(*r)})
}

func (a *API) getRoom(c *gin.Context) {
	r, err := a.rooms.GetRoom(c.Request.Context(), c.Param("roomId"), currentUser(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"room": newRoomView(*r)})
}

// roomLeaderboard serves the realtime leaderboard when the room has one in the
// cache, falling back to the stored ranking when the cache is cold.
func (a *API) roomLeaderboard(c *gin.Context) {
	r, err := a.rooms.GetRoom(c.Request.Context(), c.Param("roomId"), currentUser(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	lb, err := a.lb.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		RoomCode: r.RoomCode,
	})
	if err == nil {
		respond(c, http.StatusOK, "", gin.H{
			"roomCode":    r.RoomCode,
			"leaderboard": lb.Entries,
		})
		return
	}
	if errors.Convert(err).Code != errors.CodeNotFound {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{
		"roomCode":    r.RoomCode,
		"leaderboard": room.Leaderboard(r),
	})
}

func (a *API) deleteRoom(c *gin.Context) {
	if err := a.rooms.Close(c.Request.Context(), c.Param("roomId"), currentUser(c).UserID); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "room deleted successfully", nil)
}
