package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AppendRequiresType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{ActorUserID: 1}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_AppendFillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0) }

	if err := svc.Append(context.Background(), Event{Type: EventTypeLoginFailed, IPAddress: "1.2.3.4", Reason: "bad_password"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	if !evs[0].CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected created_at %v", evs[0].CreatedAt)
	}
}

func TestService_LogAdminAction(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	svc.LogAdminAction(context.Background(), 1, 7, "1.2.3.4", "disable_user", map[string]any{"enabled": false})

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.Type != EventTypeAdminAction || e.ActorUserID != 1 || e.TargetUserID != 7 || e.Reason != "disable_user" {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.Metadata != `{"enabled":false}` {
		t.Fatalf("unexpected metadata %q", e.Metadata)
	}
}

type failingRepo struct{}

func (failingRepo) Append(context.Context, Event) error { return errors.New("db down") }

func TestService_RecordSwallowsFailures(t *testing.T) {
	svc := NewService(failingRepo{})
	assert.NotPanics(t, func() {
		svc.Record(context.Background(), Event{Type: EventTypeLoginSucceeded})
	})
}

func TestSQLRepo_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("evt-1", "login_succeeded", int64(3), nil, "10.0.0.1", nil, nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewSQLRepo(db).Append(context.Background(), Event{
		ID: "evt-1", Type: EventTypeLoginSucceeded, ActorUserID: 3, IPAddress: "10.0.0.1", CreatedAt: at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewSQLRepo(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
