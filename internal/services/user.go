package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dreamhome/planner/internal/mq"
	"github.com/dreamhome/planner/internal/store"
	"github.com/dreamhome/planner/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer inputs.
	maxPasswordLength = 72
)

// UserRepository defines persistence operations for user records.
type UserRepository interface {
	Get(ctx context.Context, username string) (types.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Save(ctx context.Context, user types.User) (types.User, error)
}

// UserService registers and authenticates users.
type UserService struct {
	repo     UserRepository
	events   EventPublisher
	logger   *slog.Logger
	hashCost int
}

func NewUserService(repo UserRepository, events EventPublisher, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:     repo,
		events:   events,
		logger:   logger.With("component", "users"),
		hashCost: bcrypt.DefaultCost,
	}
}

// Register validates the form values and creates a user with empty lists.
func (s *UserService) Register(ctx context.Context, username, email, password, confirmPassword string) (types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" || confirmPassword == "" {
		return types.User{}, validationError("All fields are required.")
	}
	if !store.ValidKey(username) {
		return types.User{}, validationError("Username may only contain letters, digits, '.', '_' or '-' and must be at most 64 characters.")
	}
	if len(password) < minPasswordLength {
		return types.User{}, validationError("Password must be at least %d characters long.", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return types.User{}, validationError("Password must be at most %d bytes long.", maxPasswordLength)
	}
	if password != confirmPassword {
		return types.User{}, validationError("Passwords do not match.")
	}

	exists, err := s.repo.Exists(ctx, username)
	if err != nil {
		return types.User{}, storageError("check user", err)
	}
	if exists {
		return types.User{}, ErrDuplicateUser
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Indoor:       []types.Item{},
		Outdoor:      []types.Item{},
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return types.User{}, ErrDuplicateUser
		}
		return types.User{}, storageError("create user", err)
	}

	s.logger.Info("user registered", "username", username)
	publishEvent(ctx, s.events, s.logger, mq.Event{Type: mq.EventUserRegistered, Username: username})
	return user, nil
}

// Authenticate returns the user when password matches the stored hash.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.Get(ctx, strings.TrimSpace(username))
	if err != nil {
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, username string) (types.User, error) {
	return loadUser(ctx, s.repo, username)
}

func loadUser(ctx context.Context, repo UserRepository, username string) (types.User, error) {
	user, err := repo.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, storageError("load user", err)
	}
	return user, nil
}
