package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"vllmpoc/internal/chat"
	"vllmpoc/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// errorStatus maps a completion error to a status code and the detail shown
// to the client.
func errorStatus(err error) (int, string) {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode(), he.Error()
	case errors.Is(err, chat.ErrEngineUnavailable):
		return http.StatusServiceUnavailable, detailNotLoaded
	default:
		return http.StatusInternalServerError, "Generation failed: " + err.Error()
	}
}

const detailNotLoaded = "Model not loaded"

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Detail: msg})
}
