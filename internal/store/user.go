package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dreamhome/planner/types"
)

const maxKeyLength = 64

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidKey reports whether name can be used as a record file name.
func ValidKey(name string) bool {
	if name == "" || len(name) > maxKeyLength {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	return keyPattern.MatchString(name)
}

// UserRepository persists one JSON file per user under dir. The files are
// the source of truth; the in-memory index is rebuilt at startup and
// refreshed on every read and write.
type UserRepository struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	index map[string]types.User
}

// OpenUserRepository creates dir if needed and loads every record found in
// it. Unreadable or malformed files are logged and skipped.
func OpenUserRepository(dir string, logger *slog.Logger) (*UserRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &UserRepository{
		dir:    dir,
		logger: logger.With("component", "user_store"),
		index:  make(map[string]types.User),
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		r.logger.Info("created users directory", "dir", dir)
		return r, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read users directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isRecordFile(entry.Name()) {
			continue
		}
		var user types.User
		if err := readJSON(filepath.Join(dir, entry.Name()), &user); err != nil {
			r.logger.Warn("skipping user record", "file", entry.Name(), "error", err)
			continue
		}
		if !ValidKey(user.Username) {
			r.logger.Warn("skipping user record", "file", entry.Name(), "error", "invalid username")
			continue
		}
		if user.Username+recordExt != entry.Name() {
			r.logger.Warn("skipping user record", "file", entry.Name(), "username", user.Username, "error", "username does not match file name")
			continue
		}
		user.Normalize()
		r.index[user.Username] = user
	}
	r.logger.Info("loaded user records", "count", len(r.index), "dir", dir)
	return r, nil
}

// Get loads the record for username. The file wins when present. When the
// file is missing but the index still holds the user, the record is written
// back to disk before being returned.
func (r *UserRepository) Get(ctx context.Context, username string) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	if !ValidKey(username) {
		return types.User{}, ErrNotFound
	}

	var user types.User
	err := readJSON(r.path(username), &user)
	switch {
	case err == nil:
		if user.Username != username {
			return types.User{}, fmt.Errorf("user record %s%s holds username %q", username, recordExt, user.Username)
		}
		user.Normalize()
		r.mu.Lock()
		r.index[username] = user
		r.mu.Unlock()
		return user.Clone(), nil
	case !errors.Is(err, ErrNotFound):
		return types.User{}, err
	}

	r.mu.RLock()
	cached, ok := r.index[username]
	r.mu.RUnlock()
	if !ok {
		return types.User{}, ErrNotFound
	}

	r.logger.Warn("user record missing on disk, restoring from index", "username", username)
	if err := writeJSONAtomic(r.path(username), cached); err != nil {
		return types.User{}, err
	}
	return cached.Clone(), nil
}

// Exists reports whether username is known to the index or on disk.
func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !ValidKey(username) {
		return false, nil
	}

	r.mu.RLock()
	_, ok := r.index[username]
	r.mu.RUnlock()
	if ok {
		return true, nil
	}

	if _, err := os.Stat(r.path(username)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create persists a new user, failing with ErrAlreadyExists when the
// username is taken.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	if !ValidKey(user.Username) {
		return types.User{}, fmt.Errorf("invalid username %q", user.Username)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[user.Username]; ok {
		return types.User{}, ErrAlreadyExists
	}
	if _, err := os.Stat(r.path(user.Username)); err == nil {
		return types.User{}, ErrAlreadyExists
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Normalize()

	if err := writeJSONAtomic(r.path(user.Username), user); err != nil {
		return types.User{}, err
	}
	r.index[user.Username] = user
	return user.Clone(), nil
}

// Save overwrites the full record for user.Username. Last writer wins.
func (r *UserRepository) Save(ctx context.Context, user types.User) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	if !ValidKey(user.Username) {
		return types.User{}, fmt.Errorf("invalid username %q", user.Username)
	}

	user.UpdatedAt = time.Now().UTC()
	user.Normalize()
	stored := user.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeJSONAtomic(r.path(user.Username), stored); err != nil {
		return types.User{}, err
	}
	r.index[user.Username] = stored
	return user, nil
}

// Count returns the number of indexed users.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}

func (r *UserRepository) path(username string) string {
	return filepath.Join(r.dir, username+recordExt)
}
