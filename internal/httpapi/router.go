package httpapi

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/audit"
	"account-service/internal/auth"
	"account-service/internal/rbac"
	"account-service/internal/user"
	"account-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// APIPrefix is the versioned API root.
const APIPrefix = "/api/v1"

var errRouteNotFound = apperr.New(apperr.KindNotFound, "NOT_FOUND", "Resource not found")

// Deps are the services the router needs. Everything is injected; nothing
// is read from globals.
type Deps struct {
	Logger        *slog.Logger
	Users         *user.Service
	Auth          *auth.Service
	Codec         *auth.TokenCodec
	Principals    auth.PrincipalLookup
	LookupTimeout time.Duration
	Audit         *audit.Service
	// Policy defaults to rbac.DefaultPolicy(APIPrefix).
	Policy    *rbac.Policy
	Readiness []ReadinessCheck
	// TrustedProxies feeds gin's client IP resolution. nil trusts none.
	TrustedProxies []string
}

// NewRouter builds the engine. Middleware order matters: request logger,
// panic recovery, authenticator, then the access gate.
func NewRouter(d Deps) (*gin.Engine, error) {
	registerValidation()

	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	policy := d.Policy
	if policy == nil {
		policy = rbac.DefaultPolicy(APIPrefix)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(logger.Middleware(d.Logger))
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		RespondError(c, apperr.Internal(fmt.Errorf("panic: %v", rec)))
	}))
	r.Use(auth.Authenticate(d.Codec, d.Principals, d.LookupTimeout))
	r.Use(rbac.Gate(policy, RespondError))

	r.NoRoute(func(c *gin.Context) { RespondError(c, errRouteNotFound) })

	r.GET("/healthz", healthz)
	r.GET("/readyz", readyz(d.Readiness))

	v1 := r.Group(APIPrefix)

	ah := AuthHandlers{Users: d.Users, Auth: d.Auth, Audit: d.Audit}
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", ah.Register)
		authGroup.POST("/login", ah.Login)
		authGroup.POST("/refresh", ah.Refresh)
	}

	uh := UserHandlers{Users: d.Users}
	users := v1.Group("/users")
	{
		users.GET("/me", uh.Me)
		users.PUT("/me", uh.UpdateMe)
		users.DELETE("/me", uh.DeleteMe)
	}

	adm := AdminHandlers{Users: d.Users, Audit: d.Audit}
	admin := v1.Group("/admin/users")
	// Checked again here for callers that pass a custom Policy.
	admin.Use(rbac.RequireRole(user.RoleAdmin, RespondError))
	{
		admin.GET("/:id", adm.GetUser)
		admin.PUT("/:id", adm.UpdateUser)
		admin.DELETE("/:id", adm.DeleteUser)
		admin.POST("/:id/enable", adm.EnableUser)
		admin.POST("/:id/disable", adm.DisableUser)
	}

	return r, nil
}
