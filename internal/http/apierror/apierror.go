// Package apierror writes ledger errors as JSON responses.
package apierror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/caja/internal/shift"
)

// RetryAfterSeconds is advertised on 503 responses.
const RetryAfterSeconds = "1"

type Body struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type kind struct {
	name   string
	status int
}

var kinds = map[error]kind{
	shift.ErrConflict:     {"conflict", http.StatusConflict},
	shift.ErrPrecondition: {"precondition", http.StatusPreconditionFailed},
	shift.ErrValidation:   {"validation", http.StatusBadRequest},
	shift.ErrForbidden:    {"forbidden", http.StatusForbidden},
	shift.ErrNotFound:     {"not_found", http.StatusNotFound},
	shift.ErrTransient:    {"transient", http.StatusServiceUnavailable},
}

// Write maps err to its status code and writes it. Unclassified errors are
// logged and reported as a bare internal error.
func Write(w http.ResponseWriter, err error) {
	k, ok := kinds[shift.KindOf(err)]
	if !ok {
		slog.Error("request failed", "error", err)
		WriteStatus(w, http.StatusInternalServerError, "internal", "internal error")

		return
	}

	reason := err.Error()

	var e *shift.Error
	if errors.As(err, &e) {
		reason = e.Reason
	}

	if k.status == http.StatusServiceUnavailable {
		slog.Warn("store unavailable", "error", err)
		w.Header().Set("Retry-After", RetryAfterSeconds)
		reason = "store unavailable, retry later"
	}

	WriteStatus(w, k.status, k.name, reason)
}

// Validation writes a 400 for a request that could not be decoded or bound.
func Validation(w http.ResponseWriter, reason string) {
	WriteStatus(w, http.StatusBadRequest, "validation", reason)
}

func WriteStatus(w http.ResponseWriter, status int, kind, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Body{Kind: kind, Error: reason}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
