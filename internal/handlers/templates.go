package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/dreamhome/planner/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplates = template.Must(template.New("pages").Funcs(template.FuncMap{
	"imageURL": imageURL,
}).ParseFS(templateFS, "templates/*.html"))

var priorities = []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityLow}

// page is the data every template receives.
type page struct {
	Title    string
	Identity *types.Identity

	Message string
	Back    string

	Kind       types.Kind
	Items      []types.Item
	Item       types.Item
	Action     string
	Query      string
	Priority   types.Priority
	Priorities []types.Priority
}

func staticFiles() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

func imageURL(item types.Item) string {
	if item.HasImage() {
		return "/uploads/" + item.Image
	}
	return "/static/" + types.PlaceholderImage
}

// render executes the named template into a buffer first so a template
// failure never leaves a half-written page.
func render(w http.ResponseWriter, logger *slog.Logger, status int, name string, data page) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("failed to render page", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderMessage shows a short message with a back link.
func renderMessage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, message, back string) {
	data := page{Title: "Notice", Message: message, Back: back}
	if identity, ok := identityFromContext(r.Context()); ok {
		data.Identity = &identity
	}
	render(w, logger, status, "message", data)
}
