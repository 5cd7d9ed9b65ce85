package rbac

import "account-service/internal/user"

// Grants reports whether a principal holding have may act as want.
// ADMIN is a superset of USER. Unknown roles grant nothing.
func Grants(have, want user.Role) bool {
	switch have {
	case user.RoleAdmin:
		return want == user.RoleAdmin || want == user.RoleUser
	case user.RoleUser:
		return want == user.RoleUser
	default:
		return false
	}
}
