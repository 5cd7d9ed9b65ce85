package auth

import (
	"context"
	"strconv"

	"account-service/internal/user"
)

// Principal is the authenticated identity attached to a request. It is
// rebuilt from the user store on every request, never from token claims.
type Principal struct {
	ID       int64
	Username string
	Role     user.Role
	Status   user.Status
}

func PrincipalFromRecord(r user.Record) Principal {
	return Principal{
		ID:       r.ID,
		Username: r.Username,
		Role:     r.Role,
		Status:   r.Status,
	}
}

// Subject is the value carried in the sub claim.
func (p Principal) Subject() string {
	return strconv.FormatInt(p.ID, 10)
}

type ctxKey int

const ctxPrincipal ctxKey = iota

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFrom reports the request principal. ok is false for anonymous
// requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	if !ok || p.ID == 0 {
		return Principal{}, false
	}
	return p, true
}
