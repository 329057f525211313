package session

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultRoundTripTimeout bounds a single provider round trip
var DefaultRoundTripTimeout = time.Second * 10

// Listener receives the replacement Session on every change. A nil
// argument means signed out.
type Listener func(current *Session)

// Store is the single source of truth for "who is the current user right
// now". It caches the last known identity, coalesces concurrent provider
// round trips into one, and fans out replacements to subscribers in
// registration order.
type Store struct {
	provider IdentityProvider
	logger   Logger

	mu       sync.Mutex
	cached   *Session
	loaded   bool
	inflight *providerCall

	deliverMu sync.Mutex
	listeners []*storeListener
}

type storeListener struct {
	fn     Listener
	mu     sync.Mutex
	closed bool
}

func (l *storeListener) deliver(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.fn(s)
}

func (l *storeListener) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// providerCall is a single in-flight round trip shared by every caller
// that arrives while it is pending.
type providerCall struct {
	done chan struct{}
	sess *Session
	err  error
}

// StoreOption customizes Store construction.
type StoreOption func(*Store)

// WithStoreLogger overrides the logger
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a Store backed by the given provider.
func NewStore(provider IdentityProvider, opts ...StoreOption) *Store {
	s := &Store{
		provider: provider,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Current returns the cached Session when one exists, otherwise performs
// exactly one provider round trip and caches the result. Concurrent
// callers during the round trip share the same pending result. A nil
// Session with a nil error means nobody is signed in.
func (s *Store) Current(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	if s.loaded {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}

	if s.inflight == nil {
		call := &providerCall{done: make(chan struct{})}
		s.inflight = call
		go s.resolve(call)
	}
	call := s.inflight
	s.mu.Unlock()

	select {
	case <-call.done:
		return call.sess, call.err
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled waiting for session")
	}
}

// resolve runs the lazy round trip on its own deadline so an individual
// caller's cancellation does not abort the shared fetch.
func (s *Store) resolve(call *providerCall) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRoundTripTimeout)
	defer cancel()

	sess, err := s.provider.CurrentSession(ctx)

	s.deliverMu.Lock()
	s.mu.Lock()
	s.inflight = nil
	if err != nil {
		s.logger.Error("session lookup failed: %v", err)
		call.err = WrapProviderError(err, "failed to resolve current session")
		s.mu.Unlock()
		s.deliverMu.Unlock()
		close(call.done)
		return
	}

	prev := s.cached
	s.cached = sess
	s.loaded = true
	call.sess = sess
	changed := !prev.Same(sess)
	s.mu.Unlock()

	close(call.done)

	if changed {
		s.deliver(sess)
	}
	s.deliverMu.Unlock()
}

// Refresh forces a provider round trip and replaces the cache. Subscribers
// are only notified when the result differs from the previous value by
// identifier or verification timestamp. A cancelled context discards the
// late provider response instead of applying it.
func (s *Store) Refresh(ctx context.Context) (*Session, error) {
	sess, err := s.provider.RefreshSession(ctx)
	if err != nil {
		s.logger.Error("session refresh failed: %v", err)
		return nil, WrapProviderError(err, "failed to refresh session")
	}

	if ctx.Err() != nil {
		// the caller went away while the provider was answering, the
		// result must not touch the cache
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "refresh cancelled, result discarded")
	}

	s.replace(sess, false)
	return sess, nil
}

// SignIn delegates to the provider, caches the resulting Session and
// notifies subscribers.
func (s *Store) SignIn(ctx context.Context, identifier, password string) (*Session, error) {
	sess, err := s.provider.SignIn(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	s.replace(sess, false)
	return sess, nil
}

// SignOut clears the cache, notifies subscribers with a nil Session and
// delegates token invalidation to the provider. A provider failure is
// logged but the local cache is still cleared: we fail closed.
func (s *Store) SignOut(ctx context.Context) error {
	s.replace(nil, true)

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Error("provider sign out failed: %v", err)
		return WrapProviderError(err, "failed to invalidate provider token")
	}
	return nil
}

// Subscribe registers a listener invoked on every Session replacement.
// Delivery follows registration order. A listener registered while a
// round is in flight does not receive that round. The returned handle
// removes the listener; calling it more than once is harmless.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	entry := &storeListener{fn: fn}

	s.mu.Lock()
	s.listeners = append(s.listeners, entry)
	s.mu.Unlock()

	return func() {
		entry.close()
		s.mu.Lock()
		for i, l := range s.listeners {
			if l == entry {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}
}

// Peek returns the cached value without triggering a round trip.
func (s *Store) Peek() (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached, s.loaded
}

// replace swaps the cached value and fans out when it changed. force
// notifies even for an equal value (used by SignOut). The swap and its
// round happen under deliverMu so the last round always carries the
// final cached value.
func (s *Store) replace(sess *Session, force bool) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	prev := s.cached
	s.cached = sess
	s.loaded = true
	s.mu.Unlock()

	if force || !prev.Same(sess) {
		s.deliver(sess)
	}
}

// deliver fans one round out to a snapshot of the registry. Callers
// hold deliverMu, so two replacements never interleave their rounds.
func (s *Store) deliver(sess *Session) {
	s.mu.Lock()
	snapshot := make([]*storeListener, len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.Unlock()

	for _, l := range snapshot {
		l.deliver(sess)
	}
}
