package httpapi

import (
	"net/http"

	"account-service/internal/audit"
	"account-service/internal/auth"
	"account-service/internal/user"

	"github.com/gin-gonic/gin"
)

// AuthHandlers serves the public /auth routes. Keep these thin: bind, call
// a service, wrap the result.
type AuthHandlers struct {
	Users *user.Service
	Auth  *auth.Service
	Audit *audit.Service
}

type registerRequest struct {
	Username string `json:"username" binding:"required,notblank,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,notblank,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required,notblank"`
	Password string `json:"password" binding:"required,notblank"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required,notblank"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

func newTokenResponse(p auth.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "Bearer"}
}

func (h AuthHandlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err)
		return
	}

	rec, err := h.Users.Register(c.Request.Context(), user.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.Audit != nil {
		h.Audit.Record(c.Request.Context(), audit.Event{
			Type:         audit.EventTypeUserRegistered,
			TargetUserID: rec.ID,
			IPAddress:    c.ClientIP(),
		})
	}
	Success(c, http.StatusCreated, "User registered successfully", rec.Summary())
}

func (h AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err)
		return
	}

	pair, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, http.StatusOK, "Login successful", newTokenResponse(pair))
}

func (h AuthHandlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err)
		return
	}

	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, http.StatusOK, "Token refreshed successfully", newTokenResponse(pair))
}
