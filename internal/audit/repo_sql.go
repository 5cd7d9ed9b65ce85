package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied idempotently at startup next to the users table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
  id             UUID PRIMARY KEY,
  type           TEXT NOT NULL,
  actor_user_id  BIGINT,
  target_user_id BIGINT,
  ip_address     TEXT,
  reason         TEXT,
  metadata       JSONB,
  created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_created_at_idx ON audit_events (created_at);
`

// SQLRepo appends events to Postgres. It exposes no update or delete.
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, actor_user_id, target_user_id, ip_address, reason, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		nullInt(e.ActorUserID),
		nullInt(e.TargetUserID),
		nullString(e.IPAddress),
		nullString(e.Reason),
		nullString(e.Metadata),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: append %s: %w", e.Type, err)
	}
	return nil
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
