package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dreamhome/planner/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newSession(username string, expiresAt time.Time) types.Session {
	return types.Session{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@x.com",
		CreatedAt: expiresAt.Add(-24 * time.Hour),
		ExpiresAt: expiresAt,
	}
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSessionRepository(filepath.Join(t.TempDir(), "sessions"), discardLogger())
	require.NoError(t, err)

	session := newSession("alice", time.Now().Add(time.Hour).UTC())
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.Username, got.Username)
	require.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, repo.Delete(ctx, session.ID))

	_, err = repo.Get(ctx, session.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, session.ID), ErrNotFound)
}

func TestSessionRepositoryRejectsNonUUIDKeys(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSessionRepository(t.TempDir(), discardLogger())
	require.NoError(t, err)

	_, err = repo.Get(ctx, "../users/alice")
	require.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, types.Session{ID: "not-a-uuid"})
	require.Error(t, err)
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := OpenSessionRepository(dir, discardLogger())
	require.NoError(t, err)

	now := time.Now().UTC()
	live := newSession("alice", now.Add(time.Hour))
	expired := newSession("bob", now.Add(-time.Minute))
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, os.WriteFile(filepath.Join(dir, uuid.NewString()+".json"), []byte("garbage"), 0o600))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, err = repo.Get(ctx, live.ID)
	require.NoError(t, err)
	_, err = repo.Get(ctx, expired.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
