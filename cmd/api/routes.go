package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"account-service/internal/audit"
	"account-service/internal/auth"
	"account-service/internal/config"
	"account-service/internal/httpapi"
	"account-service/internal/user"
	"account-service/pkg/logger"
	"account-service/pkg/password"
	"account-service/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// app holds the wired router and the connections main must close.
type app struct {
	Router *gin.Engine
	db     *sql.DB
	rdb    *redis.Client
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// buildApp wires storage, auth services and HTTP routes.
// Keep this file free of business logic.
func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	var readiness []httpapi.ReadinessCheck

	var (
		store     user.Store
		principal auth.PrincipalLookup
		auditRepo audit.Repository
	)
	switch cfg.Store.Backend {
	case config.StoreMemory:
		mem := user.NewMemoryStore()
		store, principal = mem, mem
		auditRepo = audit.NewMemoryRepo()
		log.Warn("using in-memory user store; data is lost on restart")
	default:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.db = db

		pg := user.NewPostgresStore(db)
		sqlAudit := audit.NewSQLRepo(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		if err := sqlAudit.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		store, principal, auditRepo = pg, pg, sqlAudit
		readiness = append(readiness, httpapi.ReadinessCheck{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return db.PingContext(ctx) },
		})
	}

	var throttle auth.LoginThrottle = auth.NoopThrottle{}
	if cfg.Redis.Enabled() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		throttle = auth.NewRedisThrottle(rdb, cfg.Throttle.MaxFailures, cfg.Throttle.Window)
		readiness = append(readiness, httpapi.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	} else {
		log.Warn("REDIS_HOST not set; login throttling disabled")
	}

	hasher := password.NewBcryptHasher(password.WithCost(cfg.Auth.BcryptCost))
	users := user.NewService(store, hasher)
	auditSvc := audit.NewService(auditRepo)

	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	verifier, err := auth.NewCredentialVerifier(store, hasher)
	if err != nil {
		a.Close()
		return nil, err
	}
	issuer, err := auth.NewIssuer(codec, principal, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Admin.Enabled() {
		if err := bootstrapAdmin(logger.With(ctx, log), users, cfg.Admin); err != nil {
			a.Close()
			return nil, err
		}
	}

	router, err := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Users:          users,
		Auth:           auth.NewService(verifier, issuer, throttle, auditSvc),
		Codec:          codec,
		Principals:     principal,
		LookupTimeout:  cfg.Auth.LookupTimeout,
		Audit:          auditSvc,
		Readiness:      readiness,
		TrustedProxies: cfg.App.TrustedProxies,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Router = router
	return a, nil
}

func bootstrapAdmin(ctx context.Context, users *user.Service, cfg config.AdminConfig) error {
	rec, created, err := users.EnsureAdmin(ctx, user.RegisterInput{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.From(ctx).Info("bootstrap admin created", "user_id", rec.ID)
	} else if rec.Role != user.RoleAdmin {
		logger.From(ctx).Warn("bootstrap admin username belongs to a non-admin account", "user_id", rec.ID)
	}
	return nil
}
