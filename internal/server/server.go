package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dreamhome/planner/config"
	"github.com/dreamhome/planner/internal/handlers"
	"github.com/dreamhome/planner/internal/mq"
	"github.com/dreamhome/planner/internal/services"
	"github.com/dreamhome/planner/internal/storage"
	"github.com/dreamhome/planner/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	events     *mq.MQ
	logger     *slog.Logger
}

// New opens the record stores, image storage and event backend, and wires
// them into the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	userRepo, err := store.OpenUserRepository(cfg.UsersDir(), logger)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	sessionRepo, err := store.OpenSessionRepository(cfg.SessionsDir(), logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open image storage: %w", err)
	}

	events, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		return nil, fmt.Errorf("open event backend: %w", err)
	}
	var publisher services.EventPublisher
	if events != nil {
		publisher = events
		logger.Info("publishing events", "backend", cfg.MQ.Backend, "channel", events.Channel())
	}

	userService := services.NewUserService(userRepo, publisher, logger)
	sessionService := services.NewSessionService(sessionRepo, cfg.Session.Secret, cfg.Session.TTL, logger)
	listService := services.NewListService(userRepo, publisher, logger)
	imageService := services.NewImageService(objects)

	if removed, err := sessionService.Sweep(ctx); err != nil {
		logger.Warn("failed to sweep expired sessions", "error", err)
	} else if removed > 0 {
		logger.Info("swept expired sessions", "count", removed)
	}

	authHandler := handlers.NewAuthHandler(userService, sessionService, cfg.Session, logger)
	listHandler := handlers.NewListHandler(listService, imageService, logger)
	pageHandler := handlers.NewPageHandler(imageService, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	handlers.AuthRouter(router, authHandler)
	handlers.PageRouter(router, pageHandler, authHandler.OptionalSession)
	router.Group(func(r chi.Router) {
		r.Use(authHandler.RequireSession)
		handlers.ListRouter(r, listHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		events:     events,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the event backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		if closeErr := s.events.Close(); closeErr != nil {
			s.logger.Warn("failed to close event backend", "error", closeErr)
		}
	}
	return err
}
