package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dreamhome/planner/types"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseOptionalInt(t *testing.T) {
	value, err := parseOptionalInt("  ")
	require.NoError(t, err)
	require.Nil(t, value)

	value, err = parseOptionalInt(" 42 ")
	require.NoError(t, err)
	require.Equal(t, 42, *value)

	_, err = parseOptionalInt("lots")
	require.Error(t, err)
}

func TestReadLimited(t *testing.T) {
	data, err := readLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	require.Equal(t, "12345", string(data))

	_, err = readLimited(strings.NewReader("123456"), 5)
	require.Error(t, err)
}

func TestImageURL(t *testing.T) {
	require.Equal(t, "/static/placeholder.svg", imageURL(types.Item{Image: types.PlaceholderImage}))
	require.Equal(t, "/static/placeholder.svg", imageURL(types.Item{}))
	require.Equal(t, "/uploads/1-ab.png", imageURL(types.Item{Image: "1-ab.png"}))
}

func TestRenderListEscapesUserText(t *testing.T) {
	rec := httptest.NewRecorder()
	identity := types.Identity{Username: "dreamer"}

	render(rec, discardLogger(), http.StatusOK, "list", page{
		Title:    "Indoor list",
		Identity: &identity,
		Kind:     types.KindIndoor,
		Items: []types.Item{
			{ID: 1, Name: "<script>alert(1)</script>", Priority: types.PriorityHigh, Image: types.PlaceholderImage},
		},
		Priorities: priorities,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.NotContains(t, body, "<script>alert(1)</script>")
	require.Contains(t, body, "&lt;script&gt;")
	require.Contains(t, body, `/deleteListIndoor/1`)
	require.Contains(t, body, `/editListIndoor/1`)
	require.Contains(t, body, "Signed in as <b>dreamer</b>")
}

func TestRenderUnknownTemplate(t *testing.T) {
	rec := httptest.NewRecorder()
	render(rec, discardLogger(), http.StatusOK, "nope", page{})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRenderMessageCarriesBackLink(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/editListOutdoor/3", nil)

	renderMessage(rec, req, discardLogger(), http.StatusNotFound, "List not found.", "/homeListsOutdoor")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "List not found.")
	require.Contains(t, rec.Body.String(), `href="/homeListsOutdoor"`)
	require.Contains(t, rec.Body.String(), "Log in")
}

func TestStaticPlaceholderIsServed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/static/placeholder.svg", nil)

	http.StripPrefix("/static/", http.FileServer(staticFiles())).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<svg")
}

func TestIdentityFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := identityFromContext(req.Context())
	require.False(t, ok)

	ctx := withIdentity(req.Context(), types.Identity{Username: "dreamer", Email: "d@example.com"})
	identity, ok := identityFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "dreamer", identity.Username)
}
