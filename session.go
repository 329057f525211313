package session

import (
	"fmt"
	"time"
)

// Session is the cached projection of the authenticated identity for the
// current application context. The Store owns the one "current" value;
// everything else reads a snapshot or subscribes to replacements.
type Session struct {
	UserID     string         `json:"user_id,omitempty"`
	Email      string         `json:"email,omitempty"`
	Role       string         `json:"role,omitempty"`
	VerifiedAt *time.Time     `json:"verified_at,omitempty"`
	IssuedAt   *time.Time     `json:"issued_at,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Verified reports whether the identity provider has confirmed the
// account's email. A nil timestamp means the signup is still pending.
func (s *Session) Verified() bool {
	return s != nil && s.VerifiedAt != nil
}

// RoleClaim returns the normalized role, falling back to RoleDefault when
// the claim is absent or unrecognized.
func (s *Session) RoleClaim() string {
	if s == nil {
		return RoleDefault
	}
	return NormalizeRole(s.Role)
}

// HasRole does a case-insensitive comparison against the session role
func (s *Session) HasRole(role string) bool {
	return s.RoleClaim() == NormalizeRole(role)
}

// Same reports whether other represents the same identity in the same
// verification state. Change notification keys off this: a refresh that
// returns a Same session is not a replacement.
func (s *Session) Same(other *Session) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}

	if s.UserID != other.UserID {
		return false
	}

	switch {
	case s.VerifiedAt == nil && other.VerifiedAt == nil:
		return true
	case s.VerifiedAt == nil || other.VerifiedAt == nil:
		return false
	default:
		return s.VerifiedAt.Equal(*other.VerifiedAt)
	}
}

func (s Session) String() string {
	verifiedAt := "<nil>"
	if s.VerifiedAt != nil {
		verifiedAt = s.VerifiedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s email=%s role=%s verified_at=%s",
		s.UserID,
		s.Email,
		s.RoleClaim(),
		verifiedAt,
	)
}
