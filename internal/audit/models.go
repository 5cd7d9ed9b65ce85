package audit

import "time"

// Event is an append-only security audit record.
//
// Actor and IP capture are best-effort. Credentials and token contents are
// never stored here.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the user causing the event, 0 when anonymous.
	ActorUserID int64 `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// TargetUserID is the account acted upon, 0 when not applicable.
	TargetUserID int64 `json:"target_user_id,omitempty" db:"target_user_id"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Reason is a short machine-readable outcome, e.g. "bad_password".
	Reason string `json:"reason,omitempty" db:"reason"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLoginSucceeded EventType = "login_succeeded"
	EventTypeLoginFailed    EventType = "login_failed"
	EventTypeLoginThrottled EventType = "login_throttled"
	EventTypeTokenRefreshed EventType = "token_refreshed"
	EventTypeRefreshFailed  EventType = "refresh_failed"
	EventTypeUserRegistered EventType = "user_registered"
	EventTypeAdminAction    EventType = "admin_action"
)
