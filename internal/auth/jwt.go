package auth

import (
	"errors"
	"fmt"
	"time"

	"account-service/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the HS256 key size floor (256 bits).
const MinSecretLength = 32

// ErrInvalidToken is the single outcome for every rejected token. The cause
// chain keeps the concrete reason for InvalidReason.
var ErrInvalidToken = apperr.New(apperr.KindAuthentication, "INVALID_TOKEN", "Invalid or expired token")

var (
	errKindMismatch   = errors.New("token_type mismatch")
	errSubjectMissing = errors.New("subject missing")
	errBadLifetime    = errors.New("expiry not after issued-at")
)

type CodecConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// TokenCodec signs and verifies compact HS256 tokens. The key is copied at
// construction and never changes, so one codec is shared by all requests.
type TokenCodec struct {
	key      []byte
	issuer   string
	audience string
}

func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", MinSecretLength)
	}
	return &TokenCodec{
		key:      []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

/* ===================== ISSUE ===================== */

// Issue signs a token for subject. now and ttl are truncated to whole
// seconds; the token expires at the truncated now plus the truncated ttl.
func (c *TokenCodec) Issue(now time.Time, subject string, kind TokenKind, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errSubjectMissing
	}
	if !kind.Valid() {
		return "", fmt.Errorf("auth: unknown token kind %q", kind)
	}
	if ttl < time.Second {
		// NumericDate has second precision; anything shorter collapses exp onto iat.
		return "", fmt.Errorf("auth: ttl must be at least 1s, got %s", ttl)
	}
	// iat and exp are whole seconds on the wire. Truncating here makes the
	// signed claims exact, so the token is valid on [iat, iat+ttl).
	now = now.Truncate(time.Second)
	ttl = ttl.Truncate(time.Second)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			Audience:  audienceOrNil(c.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		TokenType: kind,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.key)
}

/* ===================== VERIFY ===================== */

// ParseAndVerify checks structure, algorithm, signature and lifetime at now.
// A token is invalid from the instant of its expiry onwards.
func (c *TokenCodec) ParseAndVerify(tokenString string, now time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken.WithCause(err)
	}

	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken.WithCause(errSubjectMissing)
	}
	if !claims.TokenType.Valid() {
		return Claims{}, ErrInvalidToken.WithCause(errKindMismatch)
	}
	if claims.IssuedAt == nil || !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return Claims{}, ErrInvalidToken.WithCause(errBadLifetime)
	}
	return claims, nil
}

// Verify is ParseAndVerify plus a token kind check.
func (c *TokenCodec) Verify(tokenString string, kind TokenKind, now time.Time) (Claims, error) {
	claims, err := c.ParseAndVerify(tokenString, now)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != kind {
		return Claims{}, ErrInvalidToken.WithCause(errKindMismatch)
	}
	return claims, nil
}

// InvalidReason names why a token was rejected. For server-side logs only;
// clients always see INVALID_TOKEN or AUTHENTICATION_REQUIRED.
func InvalidReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not_yet_valid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "wrong_issuer_or_audience"
	case errors.Is(err, errKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, errSubjectMissing):
		return "subject_missing"
	default:
		return "invalid"
	}
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
