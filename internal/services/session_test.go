package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dreamhome/planner/internal/store"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newSessionService(t *testing.T) (*SessionService, *clock, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := store.OpenSessionRepository(dir, discardLogger())
	require.NoError(t, err)

	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewSessionService(repo, "test-secret", 0, discardLogger())
	svc.now = c.Now
	return svc, c, dir
}

func TestSessionLoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	svc, c, _ := newSessionService(t)

	token, expiresAt, err := svc.Login(ctx, "alice", "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, c.now.Add(24*time.Hour), expiresAt)

	identity, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "alice", identity.Username)
	require.Equal(t, "a@x.com", identity.Email)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, svc.Logout(ctx, token), "logout is idempotent")
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	svc, c, dir := newSessionService(t)

	token, _, err := svc.Login(ctx, "alice", "a@x.com")
	require.NoError(t, err)

	c.now = c.now.Add(23*time.Hour + 59*time.Minute)
	_, err = svc.Resolve(ctx, token)
	require.NoError(t, err)

	c.now = c.now.Add(2 * time.Minute)
	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionExpired)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "expired session record should be removed")
}

func TestSessionResolveRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSessionService(t)

	for _, token := range []string{"", "   ", "not-a-token", "a.b.c"} {
		_, err := svc.Resolve(ctx, token)
		require.ErrorIs(t, err, ErrSessionNotFound, token)
	}
}

func TestSessionResolveRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	svc, c, dir := newSessionService(t)

	repo, err := store.OpenSessionRepository(dir, discardLogger())
	require.NoError(t, err)
	other := NewSessionService(repo, "another-secret", 0, discardLogger())
	other.now = c.Now

	token, _, err := other.Login(ctx, "mallory", "m@x.com")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	svc, c, dir := newSessionService(t)

	token, _, err := svc.Login(ctx, "alice", "a@x.com")
	require.NoError(t, err)

	repo, err := store.OpenSessionRepository(dir, discardLogger())
	require.NoError(t, err)
	restarted := NewSessionService(repo, "test-secret", 0, discardLogger())
	restarted.now = c.Now

	identity, err := restarted.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "alice", identity.Username)
}

func TestSessionSweep(t *testing.T) {
	ctx := context.Background()
	svc, c, dir := newSessionService(t)

	_, _, err := svc.Login(ctx, "alice", "a@x.com")
	require.NoError(t, err)
	c.now = c.now.Add(12 * time.Hour)
	_, _, err = svc.Login(ctx, "bob", "b@x.com")
	require.NoError(t, err)

	c.now = c.now.Add(13 * time.Hour)
	removed, err := svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}
