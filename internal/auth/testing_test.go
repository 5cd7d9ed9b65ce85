package auth

import (
	"context"
	"testing"
	"time"

	"account-service/internal/user"
	"account-service/pkg/password"

	"golang.org/x/crypto/bcrypt"
)

// fixture wires the auth components against an in-memory store.
type fixture struct {
	store    *user.MemoryStore
	users    *user.Service
	codec    *TokenCodec
	verifier *CredentialVerifier
	issuer   *Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := password.NewBcryptHasher(password.WithCost(bcrypt.MinCost))
	store := user.NewMemoryStore()
	codec := newTestCodec(t)

	verifier, err := NewCredentialVerifier(store, hasher)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	issuer, err := NewIssuer(codec, store, time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return &fixture{
		store:    store,
		users:    user.NewService(store, hasher),
		codec:    codec,
		verifier: verifier,
		issuer:   issuer,
	}
}

func (f *fixture) register(t *testing.T, username string) user.Record {
	t.Helper()
	rec, err := f.users.Register(context.Background(), user.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return rec
}
