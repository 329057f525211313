package local

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	session "github.com/goliatone/go-session"
	"github.com/google/uuid"
)

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// Notifier delivers verification emails. The default implementation only
// logs: wire a real mailer in production.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, email, token string) error

// SendVerification implements Notifier.
func (f NotifierFunc) SendVerification(ctx context.Context, email, token string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, token)
}

// Provider implements session.IdentityProvider against a local users
// table. It tracks who is signed in for the process; token persistence
// does not apply here, the record itself is the source of truth.
type Provider struct {
	users    Users
	notifier Notifier
	logger   session.Logger
	clock    func() time.Time

	mu      sync.Mutex
	current uuid.UUID
}

var _ session.IdentityProvider = (*Provider)(nil)

// Option customizes provider construction.
type Option func(*Provider)

// WithNotifier sets the verification mailer.
func WithNotifier(n Notifier) Option {
	return func(p *Provider) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithLogger overrides the logger
func WithLogger(logger session.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewProvider creates a provider backed by the given users repository.
func NewProvider(users Users, opts ...Option) *Provider {
	p := &Provider{
		users: users,
		notifier: NotifierFunc(func(_ context.Context, email, token string) error {
			return nil
		}),
		logger: noopLogger{},
		clock:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// SignIn verifies credentials and marks the user as the current identity.
func (p *Provider) SignIn(ctx context.Context, identifier, password string) (*session.Session, error) {
	user, err := p.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, session.ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during sign in")
	}

	if !user.IsActive {
		return nil, session.ErrAccountDisabled
	}

	if user.LoginAttemptAt != nil {
		expired, err := session.IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// too many attempts in the window, cool off
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
			WithTextCode("TOO_MANY_LOGIN_ATTEMPTS")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := p.users.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return nil, session.ErrInvalidCredentials
	}

	if err := p.users.TrackSuccessfulLogin(ctx, user); err != nil {
		p.logger.Error("failed to track successful login: %v", err)
	}

	p.mu.Lock()
	p.current = user.ID
	p.mu.Unlock()

	return p.toSession(user), nil
}

// CurrentSession resolves the signed-in user's record, (nil, nil) when
// nobody is signed in or the record disappeared.
func (p *Provider) CurrentSession(ctx context.Context) (*session.Session, error) {
	return p.lookupCurrent(ctx)
}

// RefreshSession re-reads the record. The table is always fresh so this
// is the same lookup as CurrentSession; it exists so callers can force a
// round trip past any caching layered above.
func (p *Provider) RefreshSession(ctx context.Context) (*session.Session, error) {
	return p.lookupCurrent(ctx)
}

// SignOut clears the current identity.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = uuid.Nil
	p.mu.Unlock()
	return nil
}

// ResendVerification rotates the verification token and hands it to the
// notifier. Re-sending for an already verified account is a no-op.
func (p *Provider) ResendVerification(ctx context.Context, email string) error {
	user, err := p.users.GetByIdentifier(ctx, strings.TrimSpace(email))
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return session.ErrResendFailed.WithMetadata(map[string]any{"email": email})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for resend")
	}

	if user.Verified() {
		return nil
	}

	token := uuid.New().String()
	if err := p.users.SetVerificationToken(ctx, user.ID, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification token")
	}

	if err := p.notifier.SendVerification(ctx, user.Email, token); err != nil {
		return session.WrapProviderError(err, "could not resend verification email")
	}

	return nil
}

// MarkVerified stamps the verification timestamp on the record. The
// application's confirmation endpoint calls this once the emailed token
// checks out.
func (p *Provider) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return p.users.MarkVerified(ctx, id, p.clock())
}

func (p *Provider) lookupCurrent(ctx context.Context) (*session.Session, error) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == uuid.Nil {
		return nil, nil
	}

	user, err := p.users.GetByIdentifier(ctx, current.String())
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			p.mu.Lock()
			p.current = uuid.Nil
			p.mu.Unlock()
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load current user")
	}

	if !user.IsActive {
		p.mu.Lock()
		p.current = uuid.Nil
		p.mu.Unlock()
		return nil, nil
	}

	return p.toSession(user), nil
}

func (p *Provider) toSession(user *User) *session.Session {
	return &session.Session{
		UserID:     user.ID.String(),
		Email:      user.Email,
		Role:       strings.ToLower(strings.TrimSpace(user.Role)),
		VerifiedAt: user.VerifiedAt,
		IssuedAt:   user.LastLoginAt,
		Data: map[string]any{
			"first_name":   user.FirstName,
			"last_name":    user.LastName,
			"organization": user.Organization,
		},
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
