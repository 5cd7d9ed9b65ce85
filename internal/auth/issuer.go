package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/user"
	"account-service/pkg/logger"
)

var (
	// ErrInvalidRefreshToken shares ErrInvalidToken's code, so errors.Is
	// matches either.
	ErrInvalidRefreshToken = apperr.New(apperr.KindAuthentication, ErrInvalidToken.Code, "Invalid or expired refresh token")
	ErrRefreshFailed       = apperr.New(apperr.KindAuthentication, "TOKEN_REFRESH_FAILED", "Token refresh failed")
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type PrincipalLookup interface {
	FindByID(ctx context.Context, id int64) (user.Record, error)
}

// Issuer mints token pairs and exchanges refresh tokens. Refresh is stateless:
// the presented token stays valid until its own expiry.
type Issuer struct {
	codec      *TokenCodec
	store      PrincipalLookup
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      func() time.Time
}

func NewIssuer(codec *TokenCodec, store PrincipalLookup, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token ttls must be positive")
	}
	if refreshTTL < accessTTL {
		return nil, fmt.Errorf("auth: refresh ttl %s shorter than access ttl %s", refreshTTL, accessTTL)
	}
	return &Issuer{
		codec:      codec,
		store:      store,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      time.Now,
	}, nil
}

// IssueTokenPair signs an access and a refresh token with the same issued-at.
func (i *Issuer) IssueTokenPair(p Principal) (TokenPair, error) {
	now := i.clock()
	access, err := i.codec.Issue(now, p.Subject(), TokenKindAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("issue access token: %w", err))
	}
	refresh, err := i.codec.Issue(now, p.Subject(), TokenKindRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("issue refresh token: %w", err))
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh verifies a refresh token, reloads its subject and issues a new pair.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (TokenPair, Principal, error) {
	log := logger.From(ctx)

	claims, err := i.codec.Verify(refreshToken, TokenKindRefresh, i.clock())
	if err != nil {
		log.Info("refresh rejected", "reason", InvalidReason(err))
		return TokenPair{}, Principal{}, ErrInvalidRefreshToken.WithCause(err)
	}

	id, err := claims.UserID()
	if err != nil {
		log.Info("refresh rejected", "reason", "bad_subject")
		return TokenPair{}, Principal{}, ErrInvalidRefreshToken.WithCause(err)
	}

	rec, err := i.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			log.Info("refresh rejected", "reason", "unknown_user", "user_id", id)
		} else {
			log.Error("refresh lookup failed", "user_id", id, "err", err)
		}
		return TokenPair{}, Principal{}, ErrRefreshFailed.WithCause(err)
	}
	if !rec.Status.Active() {
		log.Info("refresh rejected", "reason", rec.Status.InactiveReason(), "user_id", id)
		return TokenPair{}, Principal{}, ErrRefreshFailed
	}

	p := PrincipalFromRecord(rec)
	pair, err := i.IssueTokenPair(p)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return pair, p, nil
}
