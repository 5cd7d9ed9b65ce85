package auth

import (
	"context"
	"errors"
	"fmt"

	"account-service/internal/apperr"
	"account-service/internal/user"
	"account-service/pkg/logger"
	"account-service/pkg/password"
)

// ErrInvalidCredentials is returned for every login failure: unknown user,
// wrong password and inactive account all look the same to the caller.
var ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "AUTHENTICATION_FAILED", "Invalid username or password")

type CredentialLookup interface {
	FindByUsername(ctx context.Context, username string) (user.Record, error)
}

// CredentialVerifier checks a username/password pair against the store.
type CredentialVerifier struct {
	store  CredentialLookup
	hasher password.Hasher
	// dummyHash is compared against when the username does not exist so the
	// unknown-user path costs the same as a wrong password.
	dummyHash string
}

func NewCredentialVerifier(store CredentialLookup, hasher password.Hasher) (*CredentialVerifier, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}
	return &CredentialVerifier{store: store, hasher: hasher, dummyHash: dummy}, nil
}

// Verify returns the principal for a valid, active account.
func (v *CredentialVerifier) Verify(ctx context.Context, username, plain string) (Principal, error) {
	log := logger.From(ctx)

	rec, err := v.store.FindByUsername(ctx, username)
	if err != nil {
		_ = v.hasher.Verify(plain, v.dummyHash)
		if errors.Is(err, user.ErrNotFound) {
			log.Info("login rejected", "reason", "unknown_user")
			return Principal{}, ErrInvalidCredentials
		}
		log.Error("credential lookup failed", "err", err)
		return Principal{}, ErrInvalidCredentials.WithCause(err)
	}

	if err := v.hasher.Verify(plain, rec.PasswordHash); err != nil {
		log.Info("login rejected", "reason", "bad_password", "user_id", rec.ID)
		return Principal{}, ErrInvalidCredentials
	}

	if !rec.Status.Active() {
		log.Info("login rejected", "reason", rec.Status.InactiveReason(), "user_id", rec.ID)
		return Principal{}, ErrInvalidCredentials
	}

	return PrincipalFromRecord(rec), nil
}
