package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dreamhome/planner/internal/services"
	"github.com/dreamhome/planner/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxImageSize   = 5 << 20
	maxRequestSize = maxImageSize + 1<<20
)

// ListHandler serves the indoor and outdoor list pages.
type ListHandler struct {
	listService  *services.ListService
	imageService *services.ImageService
	logger       *slog.Logger
}

// NewListHandler constructs a ListHandler with the provided dependencies.
func NewListHandler(listService *services.ListService, imageService *services.ImageService, logger *slog.Logger) *ListHandler {
	return &ListHandler{
		listService:  listService,
		imageService: imageService,
		logger:       logger.With("handler", "lists"),
	}
}

// ListRouter registers the list routes for both kinds. The caller is
// expected to wrap r with a session check.
func ListRouter(r chi.Router, handler *ListHandler) {
	for _, kind := range []types.Kind{types.KindIndoor, types.KindOutdoor} {
		title := kind.Title()
		r.Get("/homeLists"+title, handler.List(kind))
		r.Get("/addList"+title, handler.AddForm(kind))
		r.Post("/addList"+title, handler.Create(kind))
		r.Get("/editList"+title+"/{id}", handler.EditForm(kind))
		r.Post("/editList"+title+"/{id}", handler.Update(kind))
		r.Post("/deleteList"+title+"/{id}", handler.Delete(kind))
	}
}

// List renders the list, narrowed by the optional q and priority filters.
func (h *ListHandler) List(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := identityFromContext(r.Context())

		items, err := h.listService.ListItems(r.Context(), identity.Username, kind)
		if err != nil {
			h.handleError(w, r, kind, err)
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		var priority types.Priority
		if value, err := parseOptionalInt(r.URL.Query().Get("priority")); err == nil && value != nil {
			priority = types.Priority(*value)
		}
		if query != "" || priority.Valid() {
			items = services.FilterItems(items, query, priority)
		}

		render(w, h.logger, http.StatusOK, "list", page{
			Title:      kind.Title() + " list",
			Identity:   &identity,
			Kind:       kind,
			Items:      items,
			Query:      query,
			Priority:   priority,
			Priorities: priorities,
		})
	}
}

// AddForm renders an empty item form.
func (h *ListHandler) AddForm(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := identityFromContext(r.Context())
		render(w, h.logger, http.StatusOK, "item_form", page{
			Title:      "Add to " + kind.Title() + " list",
			Identity:   &identity,
			Kind:       kind,
			Item:       types.Item{Priority: types.PriorityHigh},
			Action:     "/addList" + kind.Title(),
			Priorities: priorities,
		})
	}
}

// Create adds the submitted item and returns to the list.
func (h *ListHandler) Create(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := identityFromContext(r.Context())

		fields, err := h.readItemFields(w, r)
		if err != nil {
			h.handleError(w, r, kind, err)
			return
		}

		item, err := h.listService.AddItem(r.Context(), identity.Username, kind, fields)
		if err != nil {
			h.discardImage(r, fields.Image)
			h.handleError(w, r, kind, err)
			return
		}
		h.logger.Debug("item added", "username", identity.Username, "kind", kind, "id", item.ID)
		http.Redirect(w, r, "/homeLists"+kind.Title(), http.StatusSeeOther)
	}
}

// EditForm renders the form filled with the current item.
func (h *ListHandler) EditForm(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := identityFromContext(r.Context())

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			h.notFound(w, r, kind)
			return
		}

		item, err := h.listService.GetItem(r.Context(), identity.Username, kind, id)
		if err != nil {
			h.handleError(w, r, kind, err)
			return
		}

		render(w, h.logger, http.StatusOK, "item_form", page{
			Title:      "Edit " + kind.Title() + " list",
			Identity:   &identity,
			Kind:       kind,
			Item:       item,
			Action:     "/editList" + kind.Title() + "/" + strconv.Itoa(item.ID),
			Priorities: priorities,
		})
	}
}

// Update overwrites the item's fields. An unknown id changes nothing.
func (h *ListHandler) Update(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := identityFromContext(r.Context())

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			h.notFound(w, r, kind)
			return
		}

		fields, err := h.readItemFields(w, r)
		if err != nil {
			var validation *services.ValidationError
			if errors.As(err, &validation) {
				if _, getErr := h.listService.GetItem(r.Context(), identity.Username, kind, id); errors.Is(getErr, services.ErrNotFound) {
					http.Redirect(w, r, "/homeLists"+kind.Title(), http.StatusSeeOther)
					return
				}
			}
			h.handleError(w, r, kind, err)
			return
		}

		updated, err := h.listService.EditItem(r.Context(), identity.Username, kind, id, fields)
		if err != nil {
			h.discardImage(r, fields.Image)
			h.handleError(w, r, kind, err)
			return
		}
		if !updated {
			h.discardImage(r, fields.Image)
			h.logger.Debug("edit of unknown item ignored", "username", identity.Username, "kind", kind, "id", id)
		}
		http.Redirect(w, r, "/homeLists"+kind.Title(), http.StatusSeeOther)
	}
}

// Delete removes the item and answers with a JSON DeleteResponse.
func (h *ListHandler) Delete(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := identityFromContext(r.Context())

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, DeleteResponse{Success: false, Error: "invalid id"})
			return
		}

		if _, err := h.listService.DeleteItem(r.Context(), identity.Username, kind, id); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, DeleteResponse{Success: false, Error: "user not found"})
				return
			}
			h.logger.Error("failed to delete item", "username", identity.Username, "kind", kind, "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, DeleteResponse{Success: false, Error: "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, DeleteResponse{Success: true})
	}
}

// readItemFields parses a multipart or urlencoded item form. An uploaded
// image is stored right away and its name returned in the fields.
func (h *ListHandler) readItemFields(w http.ResponseWriter, r *http.Request) (services.ItemFields, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageSize); err != nil {
			return services.ItemFields{}, &services.ValidationError{Message: "Invalid form submission."}
		}
	} else if err := r.ParseForm(); err != nil {
		return services.ItemFields{}, &services.ValidationError{Message: "Invalid form submission."}
	}

	priority, err := parseOptionalInt(r.FormValue("priority"))
	if err != nil {
		return services.ItemFields{}, &services.ValidationError{Message: "Priority must be a number."}
	}
	cost, err := parseOptionalInt(r.FormValue("estimatedCost"))
	if err != nil {
		return services.ItemFields{}, &services.ValidationError{Message: "Estimated cost must be a whole number."}
	}

	fields := services.ItemFields{
		Name:          formValue(r, "itemOrFacility", "itemOrfacility"),
		Description:   r.FormValue("description"),
		Comment:       r.FormValue("comment"),
		Priority:      priority,
		EstimatedCost: cost,
	}

	if r.MultipartForm == nil {
		return fields, nil
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return fields, nil
		}
		return services.ItemFields{}, &services.ValidationError{Message: "Invalid image upload."}
	}
	defer file.Close()

	if header.Size == 0 {
		return fields, nil
	}
	data, err := readLimited(file, maxImageSize)
	if err != nil {
		return services.ItemFields{}, &services.ValidationError{Message: "Image must be at most 5 MB."}
	}

	name, err := h.imageService.Save(r.Context(), header.Filename, bytes.NewReader(data), int64(len(data)), header.Header.Get("Content-Type"))
	if err != nil {
		return services.ItemFields{}, err
	}
	fields.Image = name
	return fields, nil
}

// discardImage removes an upload that no item ended up referencing.
func (h *ListHandler) discardImage(r *http.Request, name string) {
	if name == "" {
		return
	}
	if err := h.imageService.Remove(r.Context(), name); err != nil {
		h.logger.Warn("failed to remove unused image", "name", name, "error", err)
	}
}

// formValue returns the first non-empty value among the given field names.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if value := r.FormValue(name); value != "" {
			return value
		}
	}
	return ""
}

func (h *ListHandler) notFound(w http.ResponseWriter, r *http.Request, kind types.Kind) {
	renderMessage(w, r, h.logger, http.StatusNotFound, "List not found.", "/homeLists"+kind.Title())
}

func (h *ListHandler) handleError(w http.ResponseWriter, r *http.Request, kind types.Kind, err error) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		renderMessage(w, r, h.logger, http.StatusBadRequest, validation.Message, "/homeLists"+kind.Title())
	case errors.Is(err, services.ErrNotFound):
		identity, _ := identityFromContext(r.Context())
		if _, userErr := h.listService.ListItems(r.Context(), identity.Username, kind); errors.Is(userErr, services.ErrNotFound) {
			// The session outlived the account.
			http.Redirect(w, r, "/logout", http.StatusSeeOther)
			return
		}
		h.notFound(w, r, kind)
	default:
		h.logger.Error("list request failed", "kind", kind, "path", r.URL.Path, "error", err)
		renderMessage(w, r, h.logger, http.StatusInternalServerError, "Something went wrong. Please try again.", "/homeLists"+kind.Title())
	}
}
