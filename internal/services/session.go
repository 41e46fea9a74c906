package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dreamhome/planner/internal/store"
	"github.com/dreamhome/planner/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionTTL = 24 * time.Hour

// SessionRepository defines persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session types.Session) error
	Get(ctx context.Context, id string) (types.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SessionService issues and resolves browser sessions. The session record on
// disk is authoritative; the cookie carries a signed reference to it so
// forged cookies are rejected without touching the disk.
type SessionService struct {
	repo   SessionRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewSessionService(repo SessionRepository, secret string, ttl time.Duration, logger *slog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With("component", "sessions"),
	}
}

// TTL returns the absolute lifetime of new sessions.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Login creates a session for the identity and returns the cookie value
// together with the session's expiry.
func (s *SessionService) Login(ctx context.Context, username, email string) (string, time.Time, error) {
	now := s.now().UTC()
	session := types.Session{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", time.Time{}, storageError("create session", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		_ = s.repo.Delete(ctx, session.ID)
		return "", time.Time{}, err
	}

	s.logger.Info("session created", "username", username, "expires_at", session.ExpiresAt)
	return token, session.ExpiresAt, nil
}

// Resolve maps a cookie value back to the identity it was issued for.
func (s *SessionService) Resolve(ctx context.Context, token string) (types.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.Identity{}, ErrSessionNotFound
	}

	claims, err := s.parse(token, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.ID != "" {
			s.discard(ctx, claims.ID)
			return types.Identity{}, ErrSessionExpired
		}
		return types.Identity{}, ErrSessionNotFound
	}

	session, err := s.repo.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Identity{}, ErrSessionNotFound
		}
		return types.Identity{}, storageError("load session", err)
	}
	if session.Username != claims.Subject {
		return types.Identity{}, ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		s.discard(ctx, session.ID)
		return types.Identity{}, ErrSessionExpired
	}

	return types.Identity{Username: session.Username, Email: session.Email}, nil
}

// Logout destroys the session behind token. Unknown sessions are ignored.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(strings.TrimSpace(token), jwt.WithoutClaimsValidation())
	if err != nil || claims.ID == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, claims.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storageError("delete session", err)
	}
	s.logger.Info("session destroyed", "username", claims.Subject)
	return nil
}

// Sweep removes every expired session record.
func (s *SessionService) Sweep(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return removed, storageError("sweep sessions", err)
	}
	return removed, nil
}

func (s *SessionService) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return claims, err
	}
	if !parsed.Valid {
		return claims, errors.New("invalid token")
	}
	return claims, nil
}

func (s *SessionService) discard(ctx context.Context, id string) {
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed to remove expired session", "error", err)
	}
}
