package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dreamhome/planner/types"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

func withIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func identityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(types.Identity)
	if !ok || identity.Username == "" {
		return types.Identity{}, false
	}
	return identity, true
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// DeleteResponse is the JSON body returned by the delete endpoints.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// parseOptionalInt returns nil for an empty value.
func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func readLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
