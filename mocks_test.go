package session_test

import (
	"context"
	"sync"
	"sync/atomic"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider is a testify mock of session.IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) CurrentSession(ctx context.Context) (*session.Session, error) {
	args := m.Called(ctx)
	sess, _ := args.Get(0).(*session.Session)
	return sess, args.Error(1)
}

func (m *MockIdentityProvider) RefreshSession(ctx context.Context) (*session.Session, error) {
	args := m.Called(ctx)
	sess, _ := args.Get(0).(*session.Session)
	return sess, args.Error(1)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, identifier, password string) (*session.Session, error) {
	args := m.Called(ctx, identifier, password)
	sess, _ := args.Get(0).(*session.Session)
	return sess, args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityProvider) ResendVerification(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// stubProvider is a function-backed provider for tests that need
// concurrency-safe call counting or behavior that changes between calls.
type stubProvider struct {
	mu sync.Mutex

	currentFn func(ctx context.Context) (*session.Session, error)
	refreshFn func(ctx context.Context) (*session.Session, error)
	signInFn  func(ctx context.Context, identifier, password string) (*session.Session, error)
	signOutFn func(ctx context.Context) error
	resendFn  func(ctx context.Context, email string) error

	currentCalls atomic.Int64
	refreshCalls atomic.Int64
	resendCalls  atomic.Int64
}

func (s *stubProvider) CurrentSession(ctx context.Context) (*session.Session, error) {
	s.currentCalls.Add(1)
	s.mu.Lock()
	fn := s.currentFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (s *stubProvider) RefreshSession(ctx context.Context) (*session.Session, error) {
	s.refreshCalls.Add(1)
	s.mu.Lock()
	fn := s.refreshFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (s *stubProvider) SignIn(ctx context.Context, identifier, password string) (*session.Session, error) {
	s.mu.Lock()
	fn := s.signInFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, identifier, password)
}

func (s *stubProvider) SignOut(ctx context.Context) error {
	s.mu.Lock()
	fn := s.signOutFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (s *stubProvider) ResendVerification(ctx context.Context, email string) error {
	s.resendCalls.Add(1)
	s.mu.Lock()
	fn := s.resendFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, email)
}
