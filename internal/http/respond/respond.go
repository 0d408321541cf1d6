// Package respond writes JSON bodies and maps purchase errors to HTTP
// statuses for every handler.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// BadRequest reports a malformed request that never reached the service.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: "bad_request"})
}

// Error writes err with the status its kind maps to. Persistence failures
// are logged and answered with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := purchase.Kind(err)
	status := Status(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}

	JSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func Status(err error) int {
	switch {
	case errors.Is(err, purchase.ErrEmptyOrder), errors.Is(err, purchase.ErrInvalidLine):
		return http.StatusBadRequest
	case errors.Is(err, purchase.ErrProductNotFound), errors.Is(err, purchase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, purchase.ErrInsufficientStock), errors.Is(err, purchase.ErrNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
