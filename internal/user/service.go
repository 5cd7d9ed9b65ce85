package user

import (
	"context"
	"errors"
	"time"

	"account-service/internal/apperr"
	"account-service/pkg/logger"
	"account-service/pkg/password"
)

// Service owns registration and profile changes. It is the only place that
// turns plaintext passwords into hashes.
type Service struct {
	store  Store
	hasher password.Hasher
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, hasher password.Hasher) *Service {
	return &Service{store: store, hasher: hasher, clock: time.Now}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateInput carries optional changes; nil fields are left untouched.
type UpdateInput struct {
	Username *string
	Email    *string
	Password *string
}

// Register creates a USER account. Username is checked before email so a
// request colliding on both reports DUPLICATE_USERNAME.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Record, error) {
	return s.create(ctx, in, RoleUser)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role Role) (Record, error) {
	log := logger.From(ctx)

	if taken, err := s.store.ExistsByUsername(ctx, in.Username); err != nil {
		return Record{}, err
	} else if taken {
		return Record{}, ErrDuplicateUsername
	}
	if taken, err := s.store.ExistsByEmail(ctx, in.Email); err != nil {
		return Record{}, err
	} else if taken {
		return Record{}, ErrDuplicateEmail
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return Record{}, err
	}

	now := s.clock().UTC()
	rec, err := s.store.Create(ctx, Record{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       ActiveStatus(),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Record{}, err
	}
	log.Info("user registered", "user_id", rec.ID, "role", rec.Role)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.store.FindByID(ctx, id)
}

// Update applies self-service profile changes. Only the changed columns are
// written, so a status change made while the password is being hashed holds.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Record, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}

	ch := ProfileChange{}
	if in.Username != nil && *in.Username != rec.Username {
		taken, err := s.store.ExistsByUsername(ctx, *in.Username)
		if err != nil {
			return Record{}, err
		}
		if taken {
			return Record{}, ErrDuplicateUsername
		}
		ch.Username = in.Username
	}
	if in.Email != nil && *in.Email != rec.Email {
		taken, err := s.store.ExistsByEmail(ctx, *in.Email)
		if err != nil {
			return Record{}, err
		}
		if taken {
			return Record{}, ErrDuplicateEmail
		}
		ch.Email = in.Email
	}
	if in.Password != nil {
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return Record{}, err
		}
		ch.PasswordHash = &hash
	}

	ch.UpdatedAt = s.clock().UTC()
	updated, err := s.store.UpdateProfile(ctx, id, ch)
	if err != nil {
		return Record{}, err
	}
	logger.From(ctx).Info("user updated", "user_id", id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.From(ctx).Info("user deleted", "user_id", id)
	return nil
}

// SetEnabled flips the enabled flag. Tokens already issued to a disabled
// account stop authenticating on the next request because the authenticator
// re-reads status on every lookup.
func (s *Service) SetEnabled(ctx context.Context, id int64, enabled bool) (Record, error) {
	updated, err := s.store.SetEnabled(ctx, id, enabled, s.clock().UTC())
	if err != nil {
		return Record{}, err
	}
	logger.From(ctx).Info("user status changed", "user_id", id, "enabled", enabled)
	return updated, nil
}

// EnsureAdmin creates an ADMIN account unless the username is already taken.
// The bool reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, in RegisterInput) (Record, bool, error) {
	existing, err := s.store.FindByUsername(ctx, in.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, false, err
	}
	rec, err := s.create(ctx, in, RoleAdmin)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *Service) hashPassword(plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return "", apperr.Validation("Validation failed", "password: must be at most 72 bytes")
		}
		if errors.Is(err, password.ErrEmpty) {
			return "", apperr.Validation("Validation failed", "password: is required")
		}
		return "", err
	}
	return hash, nil
}
