package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dreamhome/planner/internal/services"
	"github.com/dreamhome/planner/types"
	"github.com/go-chi/chi/v5"
)

// PageHandler serves the informational pages and uploaded images.
type PageHandler struct {
	imageService *services.ImageService
	logger       *slog.Logger
}

func NewPageHandler(imageService *services.ImageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		imageService: imageService,
		logger:       logger.With("handler", "pages"),
	}
}

// PageRouter registers routes that do not require a session. optional adds
// the identity to the context when one is present.
func PageRouter(r chi.Router, handler *PageHandler, optional func(http.Handler) http.Handler) {
	r.With(optional).Get("/home", handler.Home)
	r.With(optional).Get("/selectLocation", handler.SelectLocation)
	r.Get("/uploads/{name}", handler.Upload)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(staticFiles())))
	r.Get("/healthz", Healthz)
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, http.StatusOK, "home", h.pageData(r, "Home"))
}

func (h *PageHandler) SelectLocation(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, http.StatusOK, "location", h.pageData(r, "Select location"))
}

// Upload streams a stored image.
func (h *PageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == types.PlaceholderImage {
		http.Redirect(w, r, "/static/"+types.PlaceholderImage, http.StatusSeeOther)
		return
	}

	obj, err := h.imageService.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to open image", "name", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer obj.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		h.logger.Warn("image stream interrupted", "name", name, "error", err)
	}
}

func (h *PageHandler) pageData(r *http.Request, title string) page {
	data := page{Title: title}
	if identity, ok := identityFromContext(r.Context()); ok {
		data.Identity = &identity
	}
	return data
}
