package rbac

import (
	"fmt"
	"path"
	"strings"

	"account-service/internal/auth"
	"account-service/internal/user"
)

type Access int

const (
	AccessAuthenticated Access = iota
	AccessPublic
	AccessRole
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessRole:
		return "role"
	default:
		return "authenticated"
	}
}

// Rule binds a path pattern to an access level. Pattern is either an exact
// path or "prefix/**", which matches prefix itself and everything below it.
type Rule struct {
	Pattern string
	Access  Access
	Role    user.Role
}

func Public(pattern string) Rule        { return Rule{Pattern: pattern, Access: AccessPublic} }
func Authenticated(pattern string) Rule { return Rule{Pattern: pattern, Access: AccessAuthenticated} }
func RequireRoleRule(pattern string, role user.Role) Rule {
	return Rule{Pattern: pattern, Access: AccessRole, Role: role}
}

func (r Rule) matches(p string) bool {
	if prefix, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		if prefix == "" {
			return true
		}
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	return p == r.Pattern
}

// Policy is an ordered rule list evaluated first-match-wins. It is immutable
// once built.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) (*Policy, error) {
	for i, r := range rules {
		if r.Pattern == "" || !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("rbac: rule %d: pattern %q must start with /", i, r.Pattern)
		}
		if strings.Contains(strings.TrimSuffix(r.Pattern, "/**"), "*") {
			return nil, fmt.Errorf("rbac: rule %d: only a trailing /** wildcard is supported", i)
		}
		if r.Access == AccessRole && !r.Role.Valid() {
			return nil, fmt.Errorf("rbac: rule %d: unknown role %q", i, r.Role)
		}
	}
	return &Policy{rules: append([]Rule(nil), rules...)}, nil
}

// DefaultPolicy is the service route table. apiPrefix is e.g. "/api/v1".
func DefaultPolicy(apiPrefix string) *Policy {
	p, err := NewPolicy(
		Public(apiPrefix+"/auth/**"),
		Public("/healthz"),
		Public("/readyz"),
		Public("/api-docs/**"),
		Public("/swagger-ui/**"),
		Public("/swagger-ui.html"),
		RequireRoleRule(apiPrefix+"/admin/**", user.RoleAdmin),
		Authenticated("/**"),
	)
	if err != nil {
		panic(err)
	}
	return p
}

// Classify returns the first rule matching requestPath. Paths no rule
// matches require authentication.
func (p *Policy) Classify(requestPath string) Rule {
	clean := path.Clean("/" + requestPath)
	for _, r := range p.rules {
		if r.matches(clean) {
			return r
		}
	}
	return Authenticated(clean)
}

type DenyReason int

const (
	DenyNone DenyReason = iota
	DenyUnauthenticated
	DenyForbidden
)

type Decision struct {
	Allow  bool
	Reason DenyReason
	Rule   Rule
}

// Evaluate decides whether principal (nil when anonymous) may reach
// requestPath. Anonymous callers are always Unauthenticated on a protected
// route, never Forbidden.
func (p *Policy) Evaluate(requestPath string, principal *auth.Principal) Decision {
	rule := p.Classify(requestPath)
	switch rule.Access {
	case AccessPublic:
		return Decision{Allow: true, Rule: rule}
	case AccessRole:
		if principal == nil {
			return Decision{Reason: DenyUnauthenticated, Rule: rule}
		}
		if !Grants(principal.Role, rule.Role) {
			return Decision{Reason: DenyForbidden, Rule: rule}
		}
		return Decision{Allow: true, Rule: rule}
	default:
		if principal == nil {
			return Decision{Reason: DenyUnauthenticated, Rule: rule}
		}
		return Decision{Allow: true, Rule: rule}
	}
}
