package session

import "strings"

// UserRole is the user's role
type UserRole = string

const (
	// RoleAdmin manages users and all events
	RoleAdmin UserRole = "admin"
	// RoleOrganizer creates and manages their own events
	RoleOrganizer UserRole = "organizer"
	// RoleViewer has read-only access
	RoleViewer UserRole = "viewer"
	// RoleDefault is assumed when a role claim is absent or unrecognized
	RoleDefault UserRole = "user"
)

// IsKnownRole checks if the role is one of the predefined valid roles
func IsKnownRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin, RoleOrganizer, RoleViewer, RoleDefault:
		return true
	default:
		return false
	}
}

// NormalizeRole lowercases a role claim and maps absent or unrecognized
// values to RoleDefault. It never fails: a malformed claim is a default
// role, not an error.
func NormalizeRole(role string) UserRole {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" || !IsKnownRole(role) {
		return RoleDefault
	}
	return role
}

// RoleAllowed reports whether role intersects the allowed set, comparing
// case-insensitively. An empty set allows every role. An absent claim is
// compared as RoleDefault; unknown roles keep their own (lowercased)
// value so routes can declare roles this package does not predefine.
func RoleAllowed(role string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "" {
		normalized = RoleDefault
	}
	for _, candidate := range allowed {
		if strings.ToLower(strings.TrimSpace(candidate)) == normalized {
			return true
		}
	}
	return false
}

// GetAllRoles returns the predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAdmin,
		RoleOrganizer,
		RoleViewer,
		RoleDefault,
	}
}
