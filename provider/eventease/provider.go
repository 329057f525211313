package eventease

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	session "github.com/goliatone/go-session"
)

// Config configures the EventEase identity provider.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.eventease.app".
	BaseURL string

	// HTTPClient overrides the client used for API calls (optional).
	HTTPClient *http.Client

	// Tokens holds the bearer token between calls (optional).
	// Default: in-memory store.
	Tokens TokenStore

	// JWKSURL enables local signature validation of access tokens
	// (optional). Without it tokens are only decoded for expiry checks.
	JWKSURL string

	// Timeout bounds a single API call. Default: 10 seconds.
	Timeout time.Duration

	// Logger overrides the logger (optional).
	Logger session.Logger

	// Clock injects a custom clock (useful for tests).
	Clock func() time.Time
}

// Provider implements session.IdentityProvider against the EventEase
// backend API.
type Provider struct {
	baseURL string
	client  *http.Client
	tokens  TokenStore
	parser  *tokenParser
	logger  session.Logger
	clock   func() time.Time
}

var _ session.IdentityProvider = (*Provider)(nil)

// New creates an EventEase-backed identity provider.
func New(cfg Config) (*Provider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("eventease: base URL is required")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	parser, err := newTokenParser(cfg.JWKSURL, clock)
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = time.Second * 10
		}
		client = &http.Client{Timeout: timeout}
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Provider{
		baseURL: baseURL,
		client:  client,
		tokens:  tokens,
		parser:  parser,
		logger:  logger,
		clock:   clock,
	}, nil
}

// userPayload is the user shape the backend returns on /auth endpoints.
type userPayload struct {
	ID         json.Number `json:"id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Email      string      `json:"email"`
	Role       string      `json:"role"`
	IsActive   bool        `json:"is_active"`
	IsVerified bool        `json:"is_verified"`
	VerifiedAt *time.Time  `json:"verified_at,omitempty"`
	LastLogin  *time.Time  `json:"last_login,omitempty"`
	CreatedAt  *time.Time  `json:"created_at,omitempty"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        userPayload `json:"user"`
}

type apiError struct {
	Detail string `json:"detail"`
}

// signInPayload is validated before it goes over the wire.
type signInPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p signInPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

// SignIn exchanges credentials for a session, storing the bearer token.
func (p *Provider) SignIn(ctx context.Context, identifier, password string) (*session.Session, error) {
	payload := signInPayload{Email: strings.TrimSpace(identifier), Password: password}
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign in payload")
	}

	var result tokenResponse
	status, err := p.call(ctx, http.MethodPost, "/api/v1/auth/login", "", payload, &result)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		p.tokens.SetToken(result.AccessToken)
		return p.toSession(result.User), nil
	case status == http.StatusUnauthorized:
		return nil, session.ErrInvalidCredentials
	default:
		return nil, session.WrapProviderError(
			fmt.Errorf("eventease: sign in returned status %d", status),
			"sign in failed",
		)
	}
}

// CurrentSession resolves the identity behind the stored token. No token
// or an expired/rejected token means nobody is signed in: (nil, nil).
func (p *Provider) CurrentSession(ctx context.Context) (*session.Session, error) {
	token := p.tokens.Token()
	if token == "" {
		return nil, nil
	}

	// short-circuit locally before paying for a round trip
	claims, err := p.parser.parse(token)
	if err != nil || p.parser.expired(claims) {
		p.tokens.Clear()
		return nil, nil
	}

	return p.fetchMe(ctx, token)
}

// RefreshSession forces a fresh lookup against the backend, bypassing
// any local shortcut.
func (p *Provider) RefreshSession(ctx context.Context) (*session.Session, error) {
	token := p.tokens.Token()
	if token == "" {
		return nil, nil
	}
	return p.fetchMe(ctx, token)
}

// Verify probes token validity without pulling the full profile.
func (p *Provider) Verify(ctx context.Context) (bool, error) {
	token := p.tokens.Token()
	if token == "" {
		return false, nil
	}

	var result struct {
		Valid bool `json:"valid"`
	}
	status, err := p.call(ctx, http.MethodGet, "/api/v1/auth/verify", token, nil, &result)
	if err != nil {
		return false, err
	}

	if status == http.StatusUnauthorized {
		p.tokens.Clear()
		return false, nil
	}

	return status == http.StatusOK && result.Valid, nil
}

// SignOut invalidates the token. The backend treats logout as advisory
// (tokens are stateless) so the local clear is what matters.
func (p *Provider) SignOut(ctx context.Context) error {
	token := p.tokens.Token()
	p.tokens.Clear()

	if token == "" {
		return nil
	}

	if _, err := p.call(ctx, http.MethodPost, "/api/v1/auth/logout", token, nil, nil); err != nil {
		p.logger.Warn("logout call failed, token cleared locally: %v", err)
	}
	return nil
}

// ResendVerification asks the backend to send the confirmation email
// again.
func (p *Provider) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email address")
	}

	payload := map[string]string{"email": email}
	status, err := p.call(ctx, http.MethodPost, "/api/v1/auth/resend-verification", p.tokens.Token(), payload, nil)
	if err != nil {
		return err
	}

	if status != http.StatusOK && status != http.StatusAccepted {
		return session.ErrResendFailed.WithMetadata(map[string]any{
			"status": status,
			"email":  email,
		})
	}
	return nil
}

func (p *Provider) fetchMe(ctx context.Context, token string) (*session.Session, error) {
	var user userPayload
	status, err := p.call(ctx, http.MethodGet, "/api/v1/auth/me", token, nil, &user)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		return p.toSession(user), nil
	case status == http.StatusUnauthorized:
		p.tokens.Clear()
		return nil, nil
	default:
		return nil, session.WrapProviderError(
			fmt.Errorf("eventease: profile lookup returned status %d", status),
			"failed to load current user",
		)
	}
}

// call runs one API round trip. Transport failures come back as provider
// errors; HTTP error statuses are returned to the caller to map, except
// that a decodable error body upgrades the message.
func (p *Provider) call(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return 0, session.WrapProviderError(err, "identity provider unreachable")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices && out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return res.StatusCode, session.WrapProviderError(err, "failed to decode provider response")
		}
		return res.StatusCode, nil
	}

	if res.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err == nil && apiErr.Detail != "" {
			if strings.Contains(strings.ToLower(apiErr.Detail), "deactivated") {
				return res.StatusCode, session.ErrAccountDisabled
			}
			p.logger.Debug("provider error response: %s", apiErr.Detail)
		}
	}

	return res.StatusCode, nil
}

func (p *Provider) toSession(user userPayload) *session.Session {
	sess := &session.Session{
		UserID:   user.ID.String(),
		Email:    user.Email,
		Role:     strings.ToLower(strings.TrimSpace(user.Role)),
		IssuedAt: user.LastLogin,
		Data: map[string]any{
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"is_active":  user.IsActive,
		},
	}

	switch {
	case user.VerifiedAt != nil:
		sess.VerifiedAt = user.VerifiedAt
	case user.IsVerified && user.CreatedAt != nil:
		// older backends only expose the boolean flag
		sess.VerifiedAt = user.CreatedAt
	case user.IsVerified:
		now := p.clock()
		sess.VerifiedAt = &now
	}

	return sess
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
