package eventease

import (
	"fmt"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenStore abstracts where the bearer token lives between calls. The
// default keeps it in memory; embedders with their own persistence (a
// cookie jar, secure storage) plug in here.
type TokenStore interface {
	Token() string
	SetToken(token string)
	Clear()
}

// MemoryTokenStore is the default in-process TokenStore.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore returns an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Token returns the stored token, empty when signed out.
func (s *MemoryTokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the stored token.
func (s *MemoryTokenStore) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear drops the stored token.
func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// accessClaims is the claim set the EventEase backend signs into its
// access tokens.
type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// tokenParser projects bearer tokens into claims. With a JWKS URL it
// fully validates signatures; otherwise it only decodes, which is enough
// for local expiry short-circuiting since the backend re-validates every
// request anyway.
type tokenParser struct {
	jwks  *keyfunc.JWKS
	clock func() time.Time
}

func newTokenParser(jwksURL string, clock func() time.Time) (*tokenParser, error) {
	p := &tokenParser{clock: clock}

	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute * 5,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("eventease: failed to load JWK set: %w", err)
		}
		p.jwks = jwks
	}

	return p, nil
}

// parse decodes the token's claims. Validation failures and malformed
// tokens both come back as an error; callers treat that as signed out.
func (p *tokenParser) parse(tokenString string) (*accessClaims, error) {
	claims := &accessClaims{}

	if p.jwks != nil {
		if _, err := jwt.ParseWithClaims(tokenString, claims, p.jwks.Keyfunc); err != nil {
			return nil, fmt.Errorf("eventease: token validation failed: %w", err)
		}
		return claims, nil
	}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("eventease: unable to decode token: %w", err)
	}
	return claims, nil
}

// expired reports whether the claims carry an exp in the past.
func (p *tokenParser) expired(claims *accessClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(p.clock())
}
