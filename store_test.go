package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifiedSession(id string) *session.Session {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &session.Session{
		UserID:     id,
		Email:      id + "@example.com",
		Role:       "organizer",
		VerifiedAt: &at,
	}
}

func TestStoreCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("lazy fetch caches the result", func(t *testing.T) {
		provider := &stubProvider{
			currentFn: func(ctx context.Context) (*session.Session, error) {
				return verifiedSession("u-1"), nil
			},
		}
		store := session.NewStore(provider)

		first, err := store.Current(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "u-1", first.UserID)

		second, err := store.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), provider.currentCalls.Load())
	})

	t.Run("nil session with nil error means signed out", func(t *testing.T) {
		store := session.NewStore(&stubProvider{})

		sess, err := store.Current(ctx)
		assert.NoError(t, err)
		assert.Nil(t, sess)

		cached, loaded := store.Peek()
		assert.True(t, loaded)
		assert.Nil(t, cached)
	})

	t.Run("concurrent callers share one round trip", func(t *testing.T) {
		gate := make(chan struct{})
		provider := &stubProvider{
			currentFn: func(ctx context.Context) (*session.Session, error) {
				<-gate
				return verifiedSession("u-2"), nil
			},
		}
		store := session.NewStore(provider)

		const callers = 8
		results := make([]*session.Session, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sess, err := store.Current(ctx)
				assert.NoError(t, err)
				results[i] = sess
			}(i)
		}

		// give every caller a chance to join the pending round trip
		time.Sleep(50 * time.Millisecond)
		close(gate)
		wg.Wait()

		assert.Equal(t, int64(1), provider.currentCalls.Load())
		for _, sess := range results {
			require.NotNil(t, sess)
			assert.Equal(t, "u-2", sess.UserID)
		}
	})

	t.Run("provider error is not cached", func(t *testing.T) {
		boom := errors.New("connection refused")
		provider := &stubProvider{}
		provider.currentFn = func(ctx context.Context) (*session.Session, error) {
			if provider.currentCalls.Load() == 1 {
				return nil, boom
			}
			return verifiedSession("u-3"), nil
		}
		store := session.NewStore(provider, session.WithStoreLogger(quietLogger{}))

		_, err := store.Current(ctx)
		require.Error(t, err)

		_, loaded := store.Peek()
		assert.False(t, loaded)

		sess, err := store.Current(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, "u-3", sess.UserID)
	})

	t.Run("cancelled caller does not abort the shared fetch", func(t *testing.T) {
		gate := make(chan struct{})
		provider := &stubProvider{
			currentFn: func(ctx context.Context) (*session.Session, error) {
				<-gate
				return verifiedSession("u-4"), nil
			},
		}
		store := session.NewStore(provider)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.Current(cancelled)
		require.Error(t, err)

		close(gate)

		sess, err := store.Current(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, "u-4", sess.UserID)
		assert.Equal(t, int64(1), provider.currentCalls.Load())
	})
}

func TestStoreRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("unchanged identity does not notify", func(t *testing.T) {
		sess := verifiedSession("u-1")
		provider := &stubProvider{
			currentFn: func(ctx context.Context) (*session.Session, error) { return sess, nil },
			refreshFn: func(ctx context.Context) (*session.Session, error) { return sess, nil },
		}
		store := session.NewStore(provider)

		_, err := store.Current(ctx)
		require.NoError(t, err)

		var calls int
		unsubscribe := store.Subscribe(func(current *session.Session) { calls++ })
		defer unsubscribe()

		_, err = store.Refresh(ctx)
		require.NoError(t, err)
		assert.Zero(t, calls)
	})

	t.Run("verification stamp change notifies", func(t *testing.T) {
		unverified := &session.Session{UserID: "u-1", Email: "u-1@example.com", Role: "organizer"}
		provider := &stubProvider{
			currentFn: func(ctx context.Context) (*session.Session, error) { return unverified, nil },
			refreshFn: func(ctx context.Context) (*session.Session, error) { return verifiedSession("u-1"), nil },
		}
		store := session.NewStore(provider)

		_, err := store.Current(ctx)
		require.NoError(t, err)

		var got *session.Session
		unsubscribe := store.Subscribe(func(current *session.Session) { got = current })
		defer unsubscribe()

		_, err = store.Refresh(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Verified())
	})

	t.Run("cancelled context discards the late response", func(t *testing.T) {
		reqCtx, cancel := context.WithCancel(ctx)
		provider := &stubProvider{
			refreshFn: func(ctx context.Context) (*session.Session, error) {
				// the caller tears down mid round trip
				cancel()
				return verifiedSession("u-9"), nil
			},
		}
		store := session.NewStore(provider, session.WithStoreLogger(quietLogger{}))

		var calls int
		unsubscribe := store.Subscribe(func(current *session.Session) { calls++ })
		defer unsubscribe()

		_, err := store.Refresh(reqCtx)
		require.Error(t, err)
		assert.Zero(t, calls)

		_, loaded := store.Peek()
		assert.False(t, loaded)
	})

	t.Run("provider error leaves the cache alone", func(t *testing.T) {
		sess := verifiedSession("u-1")
		provider := &stubProvider{
			currentFn: func(ctx context.Context) (*session.Session, error) { return sess, nil },
			refreshFn: func(ctx context.Context) (*session.Session, error) { return nil, errors.New("boom") },
		}
		store := session.NewStore(provider, session.WithStoreLogger(quietLogger{}))

		_, err := store.Current(ctx)
		require.NoError(t, err)

		_, err = store.Refresh(ctx)
		require.Error(t, err)

		cached, loaded := store.Peek()
		assert.True(t, loaded)
		assert.Equal(t, sess, cached)
	})
}

func TestStoreSignInSignOut(t *testing.T) {
	ctx := context.Background()

	t.Run("sign in replaces the cache and notifies", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("SignIn", ctx, "u-5@example.com", "secret").
			Return(verifiedSession("u-5"), nil).Once()

		store := session.NewStore(provider)

		var got *session.Session
		unsubscribe := store.Subscribe(func(current *session.Session) { got = current })
		defer unsubscribe()

		sess, err := store.SignIn(ctx, "u-5@example.com", "secret")
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, sess, got)

		cached, loaded := store.Peek()
		assert.True(t, loaded)
		assert.Equal(t, sess, cached)
		provider.AssertExpectations(t)
	})

	t.Run("sign in failure does not touch the cache", func(t *testing.T) {
		provider := &stubProvider{
			signInFn: func(ctx context.Context, identifier, password string) (*session.Session, error) {
				return nil, session.ErrInvalidCredentials
			},
		}
		store := session.NewStore(provider)

		_, err := store.SignIn(ctx, "u-5@example.com", "wrong")
		require.Error(t, err)

		_, loaded := store.Peek()
		assert.False(t, loaded)
	})

	t.Run("sign out clears locally even when the provider fails", func(t *testing.T) {
		provider := &stubProvider{
			signOutFn: func(ctx context.Context) error { return errors.New("network down") },
		}
		store := session.NewStore(provider, session.WithStoreLogger(quietLogger{}))

		var calls int
		var last *session.Session
		unsubscribe := store.Subscribe(func(current *session.Session) {
			calls++
			last = current
		})
		defer unsubscribe()

		err := store.SignOut(ctx)
		require.Error(t, err)

		assert.Equal(t, 1, calls)
		assert.Nil(t, last)

		cached, loaded := store.Peek()
		assert.True(t, loaded)
		assert.Nil(t, cached)
	})
}

func TestStoreSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("delivery follows registration order", func(t *testing.T) {
		provider := &stubProvider{
			signInFn: func(ctx context.Context, identifier, password string) (*session.Session, error) {
				return verifiedSession("u-6"), nil
			},
		}
		store := session.NewStore(provider)

		var order []string
		store.Subscribe(func(*session.Session) { order = append(order, "a") })
		store.Subscribe(func(*session.Session) { order = append(order, "b") })
		store.Subscribe(func(*session.Session) { order = append(order, "c") })

		_, err := store.SignIn(ctx, "u-6@example.com", "secret")
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b", "c"}, order)
	})

	t.Run("last round carries the final cached value", func(t *testing.T) {
		var seq atomic.Int64
		provider := &stubProvider{
			refreshFn: func(ctx context.Context) (*session.Session, error) {
				return verifiedSession(fmt.Sprintf("u-%d", seq.Add(1))), nil
			},
		}
		store := session.NewStore(provider, session.WithStoreLogger(quietLogger{}))

		var mu sync.Mutex
		var last *session.Session
		unsubscribe := store.Subscribe(func(s *session.Session) {
			mu.Lock()
			last = s
			mu.Unlock()
		})
		defer unsubscribe()

		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%7 == 0 {
					_ = store.SignOut(ctx)
				} else {
					_, _ = store.Refresh(ctx)
				}
			}(i)
		}
		wg.Wait()

		cached, loaded := store.Peek()
		require.True(t, loaded)

		mu.Lock()
		defer mu.Unlock()
		if cached == nil {
			assert.Nil(t, last)
		} else {
			require.NotNil(t, last)
			assert.Equal(t, cached.UserID, last.UserID)
		}
	})

	t.Run("unsubscribed listener stops receiving", func(t *testing.T) {
		provider := &stubProvider{
			signInFn: func(ctx context.Context, identifier, password string) (*session.Session, error) {
				return verifiedSession("u-7"), nil
			},
		}
		store := session.NewStore(provider)

		var calls int
		unsubscribe := store.Subscribe(func(*session.Session) { calls++ })

		_, err := store.SignIn(ctx, "u-7@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		unsubscribe()
		unsubscribe() // second call is a no-op

		require.NoError(t, store.SignOut(ctx))
		assert.Equal(t, 1, calls)
	})
}

// quietLogger silences expected error logging in failure-path tests.
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}
