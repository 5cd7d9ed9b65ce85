package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// Claims are the only supported JWT claims shape for this service.
// Subject is the principal id in decimal. token_type is signed, so an access
// token can never be replayed where a refresh token is expected.
type Claims struct {
	jwt.RegisteredClaims

	TokenType TokenKind `json:"token_type"`
}

// UserID parses the subject as a principal id.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("auth: subject %q is not a user id", c.Subject)
	}
	return id, nil
}
