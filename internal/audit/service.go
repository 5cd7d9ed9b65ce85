package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"account-service/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. It is append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records security events. Audit is internal-only and callers treat
// it as best-effort: Record never fails the surrounding operation.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record appends e and logs instead of returning a failure.
func (s *Service) Record(ctx context.Context, e Event) {
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", e.Type, "err", err)
	}
}

// LogAdminAction records an administrative change to another account.
func (s *Service) LogAdminAction(ctx context.Context, actorUserID, targetUserID int64, ip, action string, metadata map[string]any) {
	s.Record(ctx, Event{
		Type:         EventTypeAdminAction,
		ActorUserID:  actorUserID,
		TargetUserID: targetUserID,
		IPAddress:    ip,
		Reason:       action,
		Metadata:     encodeMetadata(metadata),
	})
}

func encodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
