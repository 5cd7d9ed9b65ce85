package rbac

import (
	"account-service/internal/apperr"
	"account-service/internal/auth"
	"account-service/internal/user"

	"github.com/gin-gonic/gin"
)

// Responder writes a failure response. The gate aborts the chain after it.
type Responder func(c *gin.Context, err error)

// Gate enforces policy for every request. It runs after auth.Authenticate.
func Gate(policy *Policy, respond Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal *auth.Principal
		if p, ok := auth.PrincipalFrom(c.Request.Context()); ok {
			principal = &p
		}

		d := policy.Evaluate(c.Request.URL.Path, principal)
		if d.Allow {
			c.Next()
			return
		}

		deny(c, d.Reason, respond)
	}
}

// RequireRole is a per-route check for handlers mounted outside the policy
// table.
func RequireRole(role user.Role, respond Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.PrincipalFrom(c.Request.Context())
		switch {
		case !ok:
			deny(c, DenyUnauthenticated, respond)
		case !Grants(p.Role, role):
			deny(c, DenyForbidden, respond)
		default:
			c.Next()
		}
	}
}

// deny leaves logging to respond so each failure is logged once.
func deny(c *gin.Context, reason DenyReason, respond Responder) {
	if reason == DenyUnauthenticated {
		respond(c, apperr.ErrAuthenticationRequired)
	} else {
		respond(c, apperr.ErrAccessDenied)
	}
	c.Abort()
}
