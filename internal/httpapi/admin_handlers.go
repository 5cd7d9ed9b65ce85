package httpapi

import (
	"net/http"
	"strconv"

	"account-service/internal/apperr"
	"account-service/internal/audit"
	"account-service/internal/auth"
	"account-service/internal/user"

	"github.com/gin-gonic/gin"
)

// AdminHandlers serves /admin/users/:id. The ADMIN role is enforced by the
// route policy before these run.
type AdminHandlers struct {
	Users *user.Service
	Audit *audit.Service
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, apperr.Validation("Validation failed", "id: must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h AdminHandlers) logAction(c *gin.Context, targetID int64, action string, metadata map[string]any) {
	if h.Audit == nil {
		return
	}
	var actorID int64
	if p, ok := auth.PrincipalFrom(c.Request.Context()); ok {
		actorID = p.ID
	}
	h.Audit.LogAdminAction(c.Request.Context(), actorID, targetID, c.ClientIP(), action, metadata)
}

func (h AdminHandlers) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	rec, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, http.StatusOK, "User retrieved successfully", rec.Summary())
}

func (h AdminHandlers) UpdateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err)
		return
	}
	rec, err := h.Users.Update(c.Request.Context(), id, req.input())
	if err != nil {
		RespondError(c, err)
		return
	}
	h.logAction(c, id, "update_user", map[string]any{
		"username_changed": req.Username != nil,
		"email_changed":    req.Email != nil,
		"password_changed": req.Password != nil,
	})
	Success(c, http.StatusOK, "User updated successfully", rec.Summary())
}

func (h AdminHandlers) DeleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	h.logAction(c, id, "delete_user", nil)
	Success(c, http.StatusOK, "User deleted successfully", nil)
}

func (h AdminHandlers) EnableUser(c *gin.Context)  { h.setEnabled(c, true) }
func (h AdminHandlers) DisableUser(c *gin.Context) { h.setEnabled(c, false) }

func (h AdminHandlers) setEnabled(c *gin.Context, enabled bool) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	rec, err := h.Users.SetEnabled(c.Request.Context(), id, enabled)
	if err != nil {
		RespondError(c, err)
		return
	}
	action, msg := "disable_user", "User disabled successfully"
	if enabled {
		action, msg = "enable_user", "User enabled successfully"
	}
	h.logAction(c, id, action, nil)
	Success(c, http.StatusOK, msg, rec.Summary())
}
