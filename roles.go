package social

import "strings"

// UserRole is the profile's role
type UserRole = string

const (
	// RoleCreator publishes content and earns from submitted jobs
	RoleCreator UserRole = "creator"
	// RoleAdvertiser posts jobs and commissions content
	RoleAdvertiser UserRole = "advertiser"
	// RoleAdmin holds moderation capabilities; only derivable from the
	// privileged email allow-list
	RoleAdmin UserRole = "admin"
)

// ValidRole checks if the role is one of the predefined valid roles
func ValidRole(r UserRole) bool {
	switch r {
	case RoleCreator, RoleAdvertiser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, ValidRole(role)
}

// PrivilegeChecker reports whether an email may hold the admin role. It is
// injected configuration: every role-setting path consults it rather than
// trusting caller-supplied role flags.
type PrivilegeChecker func(email string) bool

// AdminAllowList builds a PrivilegeChecker from a fixed set of emails,
// compared case-insensitively.
func AdminAllowList(emails ...string) PrivilegeChecker {
	allowed := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if e := NormalizeEmail(email); e != "" {
			allowed[e] = struct{}{}
		}
	}
	return func(email string) bool {
		if email == "" {
			return false
		}
		_, ok := allowed[NormalizeEmail(email)]
		return ok
	}
}

func normalizePrivilegeChecker(p PrivilegeChecker) PrivilegeChecker {
	if p == nil {
		return func(string) bool { return false }
	}
	return p
}

// DeriveRole downgrades a requested role to creator unless the requested role
// is valid, and refuses admin unless the email is allow-listed.
func DeriveRole(requested UserRole, email string, isPrivileged PrivilegeChecker) UserRole {
	role := requested
	if !ValidRole(role) {
		role = RoleCreator
	}
	if role == RoleAdmin && !normalizePrivilegeChecker(isPrivileged)(email) {
		role = RoleCreator
	}
	return role
}
