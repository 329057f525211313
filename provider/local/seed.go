package local

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// RegisterInput describes a user to create through Register.
type RegisterInput struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	Role         string
	Organization string

	// UseHashid derives the record id deterministically from the email,
	// which keeps seeded fixtures stable across runs.
	UseHashid bool

	// Verified marks the account as already confirmed.
	Verified bool
}

func (i RegisterInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Email, validation.Required, is.Email),
		validation.Field(&i.Password, validation.Required),
	)
}

// Register creates a user record, hashing the password. It backs signup
// flows and test/development seeding.
func (p *Provider) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration input")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Organization: strings.TrimSpace(input.Organization),
		Role:         normalizeSeedRole(input.Role),
		IsActive:     true,
	}

	if input.UseHashid {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	if input.Verified {
		now := p.clock()
		user.VerifiedAt = &now
	} else {
		user.VerificationToken = uuid.New().String()
	}

	created, err := p.users.Create(ctx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	return created, nil
}

func normalizeSeedRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		// new signups default to organizer
		return "organizer"
	}
	return role
}

// SeedUser is a convenience for tests and development databases: it
// registers the user and optionally backdates the verification stamp.
func (p *Provider) SeedUser(ctx context.Context, input RegisterInput, verifiedAt *time.Time) (*User, error) {
	user, err := p.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	if verifiedAt != nil && user.VerifiedAt == nil {
		if err := p.users.MarkVerified(ctx, user.ID, *verifiedAt); err != nil {
			return nil, err
		}
		user.VerifiedAt = verifiedAt
	}

	return user, nil
}
