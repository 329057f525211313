package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// IdentityProvider is the external identity service this package projects
// into a local Session. Implementations wrap whatever owns token issuance
// and persistence; this package only caches an in-memory projection.
//
// CurrentSession and RefreshSession return (nil, nil) when nobody is signed
// in: absence of an identity is a valid answer, not a failure.
type IdentityProvider interface {
	CurrentSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, identifier, password string) (*Session, error)
	SignOut(ctx context.Context) error
	ResendVerification(ctx context.Context, email string) error
}

// GuardConfig holds the route targets guards redirect to
type GuardConfig interface {
	GetSignInPath() string
	GetVerificationPath() string
	GetDefaultLandingPath() string
	GetReturnToParam() string
	GetContextKey() string
}

// SimpleGuardConfig is a GuardConfig backed by plain fields, with zero
// values falling back to the routes used by the EventEase frontend.
type SimpleGuardConfig struct {
	SignInPath         string
	VerificationPath   string
	DefaultLandingPath string
	ReturnToParam      string
	ContextKey         string
}

func (c SimpleGuardConfig) GetSignInPath() string {
	if c.SignInPath == "" {
		return "/signin"
	}
	return c.SignInPath
}

func (c SimpleGuardConfig) GetVerificationPath() string {
	if c.VerificationPath == "" {
		return "/verify-email"
	}
	return c.VerificationPath
}

func (c SimpleGuardConfig) GetDefaultLandingPath() string {
	if c.DefaultLandingPath == "" {
		return "/dashboard"
	}
	return c.DefaultLandingPath
}

func (c SimpleGuardConfig) GetReturnToParam() string {
	if c.ReturnToParam == "" {
		return "returnTo"
	}
	return c.ReturnToParam
}

func (c SimpleGuardConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "session"
	}
	return c.ContextKey
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
