package httpapi

import (
	"net/http"

	"account-service/internal/apperr"
	"account-service/internal/auth"
	"account-service/internal/user"

	"github.com/gin-gonic/gin"
)

// UserHandlers serves /users/me for the authenticated principal.
type UserHandlers struct {
	Users *user.Service
}

// updateUserRequest is shared by self-service and admin updates. Absent
// fields are left unchanged; present ones follow the register rules.
type updateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,notblank,min=3,max=50"`
	Email    *string `json:"email" binding:"omitempty,notblank,email"`
	Password *string `json:"password" binding:"omitempty,notblank,min=8,max=72"`
}

func (r updateUserRequest) input() user.UpdateInput {
	return user.UpdateInput{Username: r.Username, Email: r.Email, Password: r.Password}
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		RespondError(c, apperr.ErrAuthenticationRequired)
	}
	return p, ok
}

func (h UserHandlers) Me(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	rec, err := h.Users.Get(c.Request.Context(), p.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, http.StatusOK, "User profile retrieved successfully", rec.Summary())
}

func (h UserHandlers) UpdateMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err)
		return
	}
	rec, err := h.Users.Update(c.Request.Context(), p.ID, req.input())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, http.StatusOK, "User profile updated successfully", rec.Summary())
}

func (h UserHandlers) DeleteMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), p.ID); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, http.StatusOK, "User account deleted successfully", nil)
}
