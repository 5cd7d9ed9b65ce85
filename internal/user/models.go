package user

import (
	"fmt"
	"time"
)

// Role is a closed set. Anything not listed here is rejected at parse time.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("user: unknown role %q", s)
	}
	return r, nil
}

// Status holds the account flags. The zero value is a disabled account.
type Status struct {
	Enabled            bool
	Locked             bool
	AccountExpired     bool
	CredentialsExpired bool
}

// ActiveStatus is the status of a freshly registered account.
func ActiveStatus() Status { return Status{Enabled: true} }

// Active reports whether the account may authenticate.
func (s Status) Active() bool {
	return s.Enabled && !s.Locked && !s.AccountExpired && !s.CredentialsExpired
}

// InactiveReason names the first failing flag, for server-side logs only.
func (s Status) InactiveReason() string {
	switch {
	case !s.Enabled:
		return "disabled"
	case s.Locked:
		return "locked"
	case s.AccountExpired:
		return "account_expired"
	case s.CredentialsExpired:
		return "credentials_expired"
	default:
		return ""
	}
}

// Record is the persisted credential record. PasswordHash is never serialized.
type Record struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary is the client-facing view of a record.
type Summary struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r Record) Summary() Summary {
	return Summary{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Role:      r.Role,
		Enabled:   r.Status.Enabled,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
