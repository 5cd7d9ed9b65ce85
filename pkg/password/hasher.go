// Package password hashes and verifies credentials. Callers never compare
// plaintext themselves.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMismatch = errors.New("password: mismatch")
	ErrTooLong  = errors.New("password: maximum length is 72 bytes (bcrypt limit)")
	ErrEmpty    = errors.New("password: empty")
)

// DefaultCost is used when no cost (or an out-of-range cost) is configured.
const DefaultCost = 12

// MaxLength is the bcrypt input limit in bytes.
const MaxLength = 72

// Hasher is a one-way hash with constant-time verification.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) error
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// BcryptOption configures a BcryptHasher.
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt cost; values outside bcrypt's range are ignored.
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	if len(plain) > MaxLength {
		return "", ErrTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(out), nil
}

// Verify returns nil on match and ErrMismatch otherwise. Malformed hashes are
// reported as a mismatch; the caller cannot do anything different with them.
func (h *BcryptHasher) Verify(plain, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrMismatch
	}
	return nil
}
