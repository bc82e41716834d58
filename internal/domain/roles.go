package domain

type Role string

const (
	// User can manage their own account
	RoleUser Role = "user"
	// Moderator can read other accounts
	RoleModerator Role = "moderator"
	// Admin can manage every account, including roles and activation
	RoleAdmin Role = "admin"
)

// AllRoles is the closed set of roles. Matching is exact and case-sensitive.
var AllRoles = []Role{RoleUser, RoleModerator, RoleAdmin}

func IsValidRole(r string) bool {
	for _, role := range AllRoles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// Satisfies reports whether actual meets one of the required roles.
// The only hierarchy is admin covering moderator; user is never implied.
func Satisfies(actual Role, required ...Role) bool {
	for _, r := range required {
		if actual == r {
			return true
		}
		if r == RoleModerator && actual == RoleAdmin {
			return true
		}
	}
	return false
}

// RoleNames converts roles to plain strings (for error meta and JSON).
func RoleNames(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
