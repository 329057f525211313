package session_test

import (
	"context"
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
)

func TestSessionVerified(t *testing.T) {
	var nilSession *session.Session
	assert.False(t, nilSession.Verified())

	assert.False(t, (&session.Session{UserID: "u-1"}).Verified())
	assert.True(t, verifiedSession("u-1").Verified())
}

func TestSessionSame(t *testing.T) {
	var nilSession *session.Session

	t.Run("both nil", func(t *testing.T) {
		assert.True(t, nilSession.Same(nil))
	})

	t.Run("nil against value", func(t *testing.T) {
		assert.False(t, nilSession.Same(verifiedSession("u-1")))
		assert.False(t, verifiedSession("u-1").Same(nil))
	})

	t.Run("same identity and stamp", func(t *testing.T) {
		assert.True(t, verifiedSession("u-1").Same(verifiedSession("u-1")))
	})

	t.Run("different user", func(t *testing.T) {
		assert.False(t, verifiedSession("u-1").Same(verifiedSession("u-2")))
	})

	t.Run("verification stamp flips", func(t *testing.T) {
		pending := &session.Session{UserID: "u-1"}
		assert.False(t, pending.Same(verifiedSession("u-1")))
		assert.False(t, verifiedSession("u-1").Same(pending))
	})

	t.Run("other fields do not matter", func(t *testing.T) {
		a := verifiedSession("u-1")
		b := verifiedSession("u-1")
		b.Email = "changed@example.com"
		b.Role = "admin"
		assert.True(t, a.Same(b))
	})

	t.Run("equal instants in different locations", func(t *testing.T) {
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		local := at.In(time.FixedZone("X", 3600))

		a := &session.Session{UserID: "u-1", VerifiedAt: &at}
		b := &session.Session{UserID: "u-1", VerifiedAt: &local}
		assert.True(t, a.Same(b))
	})
}

func TestSessionRoleClaim(t *testing.T) {
	var nilSession *session.Session
	assert.Equal(t, session.RoleDefault, nilSession.RoleClaim())
	assert.Equal(t, session.RoleDefault, (&session.Session{}).RoleClaim())
	assert.Equal(t, session.RoleAdmin, (&session.Session{Role: "ADMIN"}).RoleClaim())

	assert.True(t, (&session.Session{Role: "Organizer"}).HasRole("organizer"))
	assert.False(t, (&session.Session{Role: "viewer"}).HasRole("admin"))
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()

	_, ok := session.FromContext(ctx)
	assert.False(t, ok)

	sess := verifiedSession("u-1")
	ctx = session.WithContext(ctx, sess)

	got, ok := session.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, sess, got)
}
