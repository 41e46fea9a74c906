package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dreamhome/planner/internal/mq"
	"github.com/dreamhome/planner/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, event mq.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return "id", nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

type fixture struct {
	dir    string
	repo   *store.UserRepository
	events *recordingPublisher
	users  *UserService
	lists  *ListService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := store.OpenUserRepository(dir, discardLogger())
	require.NoError(t, err)

	events := &recordingPublisher{}
	users := NewUserService(repo, events, discardLogger())
	users.hashCost = bcrypt.MinCost

	return &fixture{
		dir:    dir,
		repo:   repo,
		events: events,
		users:  users,
		lists:  NewListService(repo, events, discardLogger()),
	}
}

func (f *fixture) register(t *testing.T, username, password string) {
	t.Helper()
	_, err := f.users.Register(context.Background(), username, username+"@x.com", password, password)
	require.NoError(t, err)
}

func intPtr(v int) *int {
	return &v
}
