package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"account-service/internal/apperr"
	"account-service/pkg/utils"

	"github.com/redis/go-redis/v9"
)

var ErrTooManyAttempts = apperr.New(apperr.KindRateLimited, "TOO_MANY_ATTEMPTS", "Too many failed login attempts, try again later")

// LoginThrottle counts failed logins per username.
type LoginThrottle interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// NoopThrottle never blocks. Used when Redis is not configured.
type NoopThrottle struct{}

func (NoopThrottle) Blocked(context.Context, string) (bool, error) { return false, nil }
func (NoopThrottle) RecordFailure(context.Context, string) error   { return nil }
func (NoopThrottle) Reset(context.Context, string) error           { return nil }

// RedisThrottle blocks a username after maxFailures failed logins inside a
// fixed window that starts at the first failure.
type RedisThrottle struct {
	rdb         *redis.Client
	maxFailures int64
	window      time.Duration
}

func NewRedisThrottle(rdb *redis.Client, maxFailures int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{rdb: rdb, maxFailures: int64(maxFailures), window: window}
}

func (t *RedisThrottle) Blocked(ctx context.Context, username string) (bool, error) {
	n, err := utils.WindowCount(ctx, t.rdb, throttleKey(username))
	if err != nil {
		return false, err
	}
	return n >= t.maxFailures, nil
}

func (t *RedisThrottle) RecordFailure(ctx context.Context, username string) error {
	_, err := utils.IncrementWindowCounter(ctx, t.rdb, throttleKey(username), t.window)
	return err
}

func (t *RedisThrottle) Reset(ctx context.Context, username string) error {
	return utils.ResetWindowCounter(ctx, t.rdb, throttleKey(username))
}

// throttleKey hashes the username so raw identifiers never land in Redis.
func throttleKey(username string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(username))))
	return "auth:login_failures:" + hex.EncodeToString(sum[:])
}
