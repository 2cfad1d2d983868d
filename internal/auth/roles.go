// Package auth guards the HTTP API with HS256 bearer tokens and a small
// role hierarchy: viewer < operator < admin.
package auth

import "strings"

// Role is an access level carried in the token.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// NormalizeRole canonicalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	_, ok := roleRank[role]
	return role, ok
}

// Allows reports whether a role satisfies the required role.
func (r Role) Allows(required Role) bool {
	return roleRank[r] >= roleRank[required] && roleRank[required] > 0
}
