package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizie/quizie/internal/auth"
	"github.com/quizie/quizie/internal/domain"
)

type userView struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email,omitempty"`
	DisplayName string           `json:"displayName"`
	Avatar      string           `json:"avatar,omitempty"`
	Bio         string           `json:"bio,omitempty"`
	Stats       domain.UserStats `json:"stats"`
	LastLogin   *time.Time       `json:"lastLogin,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func newUserView(u domain.User) userView {
	v := userView{
		ID:          u.UserID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Bio:         u.Bio,
		Stats:       u.Stats,
		CreatedAt:   u.CreatedAt,
	}
	if !u.LastLogin.IsZero() {
		v.LastLogin = &u.LastLogin
	}
	return v
}

type registerRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=50"`
}

type authResponse struct {
	User         userView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := a.auth.Register(c.Request.Context(), auth.RegisterRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "user registered successfully", authResponse{
		User:         newUserView(res.User),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

type loginRequest struct {
	// Identifier is a username or email.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := a.auth.Login(c.Request.Context(), auth.LoginRequest{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "login successful", authResponse{
		User:         newUserView(res.User),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

func (a *API) checkUsername(c *gin.Context) {
	username := c.Param("username")

	available, err := a.auth.IsUsernameAvailable(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{
		"username":  username,
		"available": available,
	})
}

func (a *API) getProfile(c *gin.Context) {
	respond(c, http.StatusOK, "", gin.H{"user": newUserView(*currentUser(c))})
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"max=50"`
	Bio         string `json:"bio" binding:"max=500"`
	Avatar      string `json:"avatar"`
}

func (a *API) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	u, err := a.auth.UpdateProfile(c.Request.Context(), auth.UpdateProfileRequest{
		UserID:      currentUser(c).UserID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Avatar:      req.Avatar,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "profile updated successfully", gin.H{"user": newUserView(*u)})
}
