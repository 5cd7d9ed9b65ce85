package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"account-service/internal/user"
	"account-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// Authenticate resolves an optional bearer access token into a Principal.
// It never rejects a request: any failure leaves the request anonymous and
// the access gate decides what that means for the route.
func Authenticate(codec *TokenCodec, store PrincipalLookup, lookupTimeout time.Duration) gin.HandlerFunc {
	return authenticate(codec, store, lookupTimeout, time.Now)
}

func authenticate(codec *TokenCodec, store PrincipalLookup, lookupTimeout time.Duration, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c.Request.Context()); ok {
			c.Next()
			return
		}

		tok, ok := bearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			c.Next()
			return
		}

		log := logger.From(c.Request.Context())

		claims, err := codec.Verify(tok, TokenKindAccess, now())
		if err != nil {
			log.Debug("bearer token rejected", "reason", InvalidReason(err))
			c.Next()
			return
		}
		id, err := claims.UserID()
		if err != nil {
			log.Debug("bearer token rejected", "reason", "bad_subject")
			c.Next()
			return
		}

		rec, err := lookup(c.Request.Context(), store, id, lookupTimeout)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				log.Debug("bearer token rejected", "reason", "unknown_user", "user_id", id)
			} else {
				log.Warn("principal lookup failed", "user_id", id, "err", err)
			}
			c.Next()
			return
		}
		if !rec.Status.Active() {
			log.Debug("bearer token rejected", "reason", rec.Status.InactiveReason(), "user_id", id)
			c.Next()
			return
		}

		p := PrincipalFromRecord(rec)
		ctx := WithPrincipal(c.Request.Context(), p)
		ctx = logger.With(ctx, log.With("user_id", p.ID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func lookup(ctx context.Context, store PrincipalLookup, id int64, timeout time.Duration) (user.Record, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return store.FindByID(ctx, id)
}

func bearerToken(header string) (string, bool) {
	raw := strings.TrimSpace(header)
	if !strings.HasPrefix(raw, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	return tok, tok != ""
}
