package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dreamhome/planner/types"
	"github.com/google/uuid"
)

// SessionRepository keeps one JSON file per session under dir so that
// sessions survive a process restart.
type SessionRepository struct {
	dir    string
	logger *slog.Logger
}

// OpenSessionRepository creates dir if needed.
func OpenSessionRepository(dir string, logger *slog.Logger) (*SessionRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &SessionRepository{
		dir:    dir,
		logger: logger.With("component", "session_store"),
	}, nil
}

func (r *SessionRepository) Create(ctx context.Context, session types.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validSessionID(session.ID) {
		return fmt.Errorf("invalid session id %q", session.ID)
	}
	return writeJSONAtomic(r.path(session.ID), session)
}

func (r *SessionRepository) Get(ctx context.Context, id string) (types.Session, error) {
	if err := ctx.Err(); err != nil {
		return types.Session{}, err
	}
	if !validSessionID(id) {
		return types.Session{}, ErrNotFound
	}
	var session types.Session
	if err := readJSON(r.path(id), &session); err != nil {
		return types.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validSessionID(id) {
		return ErrNotFound
	}
	if err := os.Remove(r.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteExpired removes every session past its expiry at now, along with
// unreadable session files. It returns the number of files removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("read sessions directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !isRecordFile(entry.Name()) {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		var session types.Session
		if err := readJSON(path, &session); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			r.logger.Warn("removing unreadable session", "file", entry.Name(), "error", err)
		} else if !session.Expired(now) {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove session", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (r *SessionRepository) path(id string) string {
	return filepath.Join(r.dir, id+recordExt)
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
