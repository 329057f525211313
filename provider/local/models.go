package local

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record backing the local provider.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role              string     `bun:"role,notnull" json:"role,omitempty"`
	FirstName         string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName          string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	Organization      string     `bun:"organization" json:"organization,omitempty"`
	IsActive          bool       `bun:"is_active" json:"is_active,omitempty"`
	VerifiedAt        *time.Time `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	VerificationToken string     `bun:"verification_token" json:"-"`
	LoginAttempts     int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt    *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LastLoginAt       *time.Time `bun:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Verified reports whether the account's email has been confirmed.
func (u *User) Verified() bool {
	return u != nil && u.VerifiedAt != nil
}
