package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dreamhome/planner/config"
	"github.com/dreamhome/planner/internal/services"
	"github.com/go-chi/chi/v5"
)

// AuthHandler serves login, registration and logout, and resolves the
// session cookie for the other routes.
type AuthHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
	cookie         config.SessionConfig
	logger         *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessionService *services.SessionService, cookie config.SessionConfig, logger *slog.Logger) *AuthHandler {
	if cookie.CookieName == "" {
		cookie.CookieName = "dreamhome_session"
	}
	return &AuthHandler{
		userService:    userService,
		sessionService: sessionService,
		cookie:         cookie,
		logger:         logger.With("handler", "auth"),
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.With(handler.OptionalSession).Get("/", handler.LoginForm)
	r.Post("/", handler.Login)
	r.Get("/createAccount", handler.RegisterForm)
	r.Post("/createAccount", handler.Register)
	r.With(handler.RequireSession).Get("/logout", handler.Logout)
}

// RequireSession redirects to the login page unless the request carries a
// live session, whose identity is then put on the request context.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := h.resolve(w, r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalSession adds the identity to the context when a live session is
// present and lets the request through either way.
func (h *AuthHandler) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, _ = h.resolve(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) resolve(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	cookie, err := r.Cookie(h.cookie.CookieName)
	if err != nil {
		return r, false
	}

	identity, err := h.sessionService.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, services.ErrSessionNotFound) && !errors.Is(err, services.ErrSessionExpired) {
			h.logger.Error("failed to resolve session", "error", err)
		}
		h.clearCookie(w)
		return r, false
	}
	return r.WithContext(withIdentity(r.Context(), identity)), true
}

// LoginForm shows the login page, or sends signed-in users home.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	render(w, h.logger, http.StatusOK, "login", page{Title: "Log in"})
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderMessage(w, r, h.logger, http.StatusBadRequest, "Invalid form submission.", "/")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrInvalidCredentials) {
			renderMessage(w, r, h.logger, http.StatusUnauthorized, "Invalid username or password.", "/")
			return
		}
		h.logger.Error("failed to authenticate", "error", err)
		renderMessage(w, r, h.logger, http.StatusInternalServerError, "Something went wrong. Please try again.", "/")
		return
	}

	token, expiresAt, err := h.sessionService.Login(r.Context(), user.Username, user.Email)
	if err != nil {
		h.logger.Error("failed to create session", "username", user.Username, "error", err)
		renderMessage(w, r, h.logger, http.StatusInternalServerError, "Something went wrong. Please try again.", "/")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// RegisterForm shows the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, http.StatusOK, "register", page{Title: "Create account"})
}

// Register creates a new account and sends the user to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderMessage(w, r, h.logger, http.StatusBadRequest, "Invalid form submission.", "/createAccount")
		return
	}

	_, err := h.userService.Register(
		r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("email"),
		r.PostFormValue("password"),
		r.PostFormValue("confirmPassword"),
	)
	if err != nil {
		var validation *services.ValidationError
		switch {
		case errors.As(err, &validation):
			renderMessage(w, r, h.logger, http.StatusBadRequest, validation.Message, "/createAccount")
		case errors.Is(err, services.ErrDuplicateUser):
			renderMessage(w, r, h.logger, http.StatusConflict, "That username is already taken.", "/createAccount")
		default:
			h.logger.Error("failed to register user", "error", err)
			renderMessage(w, r, h.logger, http.StatusInternalServerError, "Something went wrong. Please try again.", "/createAccount")
		}
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookie.CookieName); err == nil {
		if err := h.sessionService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("failed to destroy session", "error", err)
		}
	}
	h.clearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
