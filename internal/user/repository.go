package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is applied idempotently at startup. Constraint names are relied on
// by translateError to tell username and email collisions apart.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
  id                  BIGSERIAL PRIMARY KEY,
  username            TEXT NOT NULL,
  email               TEXT NOT NULL,
  password_hash       TEXT NOT NULL,
  role                TEXT NOT NULL DEFAULT 'USER',
  enabled             BOOLEAN NOT NULL DEFAULT TRUE,
  account_locked      BOOLEAN NOT NULL DEFAULT FALSE,
  account_expired     BOOLEAN NOT NULL DEFAULT FALSE,
  credentials_expired BOOLEAN NOT NULL DEFAULT FALSE,
  created_at          TIMESTAMPTZ NOT NULL,
  updated_at          TIMESTAMPTZ NOT NULL,
  CONSTRAINT users_username_key UNIQUE (username),
  CONSTRAINT users_email_key UNIQUE (email)
)
`

const (
	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
	pgUniqueViolation  = "23505"
)

const selectColumns = `id, username, email, password_hash, role, enabled, account_locked, account_expired, credentials_expired, created_at, updated_at`

// PostgresStore persists records through database/sql (pgx stdlib driver).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the users table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("user: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, r Record) (Record, error) {
	const q = `
INSERT INTO users (
  username, email, password_hash, role, enabled, account_locked, account_expired, credentials_expired, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
RETURNING id
`
	err := s.db.QueryRowContext(ctx, q,
		r.Username,
		r.Email,
		r.PasswordHash,
		string(r.Role),
		r.Status.Enabled,
		r.Status.Locked,
		r.Status.AccountExpired,
		r.Status.CredentialsExpired,
		r.CreatedAt,
		r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return Record{}, translateError(err)
	}
	return r, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Record, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (Record, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (Record, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (s *PostgresStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

// UpdateProfile rewrites username, email and password_hash only. Status
// flags and role are untouched so a concurrent disable is never undone.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id int64, ch ProfileChange) (Record, error) {
	const q = `
UPDATE users
SET username      = COALESCE($2, username),
    email         = COALESCE($3, email),
    password_hash = COALESCE($4, password_hash),
    updated_at    = $5
WHERE id = $1
RETURNING ` + selectColumns
	row := s.db.QueryRowContext(ctx, q,
		id,
		nullString(ch.Username),
		nullString(ch.Email),
		nullString(ch.PasswordHash),
		ch.UpdatedAt,
	)
	return scanRecord(row)
}

func (s *PostgresStore) SetEnabled(ctx context.Context, id int64, enabled bool, at time.Time) (Record, error) {
	const q = `
UPDATE users
SET enabled = $2, updated_at = $3
WHERE id = $1
RETURNING ` + selectColumns
	return scanRecord(s.db.QueryRowContext(ctx, q, id, enabled, at))
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, q string, arg any) (Record, error) {
	return scanRecord(s.db.QueryRowContext(ctx, q, arg))
}

func scanRecord(row *sql.Row) (Record, error) {
	var (
		r    Record
		role string
	)
	err := row.Scan(
		&r.ID,
		&r.Username,
		&r.Email,
		&r.PasswordHash,
		&role,
		&r.Status.Enabled,
		&r.Status.Locked,
		&r.Status.AccountExpired,
		&r.Status.CredentialsExpired,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, translateError(err)
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return Record{}, err
	}
	r.Role = parsed
	return r, nil
}

func (s *PostgresStore) exists(ctx context.Context, q string, arg any) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, q, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintUsername:
			return ErrDuplicateUsername.WithCause(err)
		case constraintEmail:
			return ErrDuplicateEmail.WithCause(err)
		}
	}
	return err
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
