// Package apierrors writes the JSON error envelope used by every feature and
// maps the assignment engine's error taxonomy onto HTTP statuses.
//
// Conflicts are kept visually distinct from generic failures (kind
// "conflict" plus a reason) because they indicate an action the user can
// correct: choose another unit, or unassign the current occupant first.
package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/propertyhub/internal/app/engine/assignment"
	"github.com/dalemusser/propertyhub/internal/app/system/txn"
	"go.uber.org/zap"
)

// Error kinds.
const (
	KindNotFound        = "not_found"
	KindInvalidArgument = "invalid_argument"
	KindConflict        = "conflict"
	KindUnauthorized    = "unauthorized"
	KindForbidden       = "forbidden"
	KindRetryable       = "retryable"
	KindInternal        = "internal"
)

// Payload is the JSON error body.
type Payload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// Write emits an error payload with the given status.
func Write(w http.ResponseWriter, status int, kind, message string) {
	writePayload(w, status, Payload{Kind: kind, Message: message})
}

// WriteConflict emits a 409 with the conflict's reason.
func WriteConflict(w http.ResponseWriter, reason string) {
	writePayload(w, http.StatusConflict, Payload{
		Kind:    KindConflict,
		Message: "The request conflicts with the current state.",
		Reason:  reason,
	})
}

// WriteEngineError maps an assignment/reconcile error to its HTTP response.
// Unexpected errors are logged and surface as a generic 500.
func WriteEngineError(w http.ResponseWriter, err error, log *zap.Logger) {
	var conflict *assignment.ConflictError
	switch {
	case errors.Is(err, assignment.ErrNotFound):
		Write(w, http.StatusNotFound, KindNotFound, "Record not found.")
	case errors.Is(err, assignment.ErrNoActiveLease):
		Write(w, http.StatusNotFound, KindNotFound, "No active lease for this property.")
	case errors.Is(err, assignment.ErrUnitRequired):
		Write(w, http.StatusBadRequest, KindInvalidArgument, "A unit number is required for a multi-unit property.")
	case errors.Is(err, assignment.ErrUnitNotAllowed):
		Write(w, http.StatusBadRequest, KindInvalidArgument, "A unit number cannot be supplied for a single-unit property.")
	case errors.As(err, &conflict):
		WriteConflict(w, conflict.Reason)
	case txn.IsRetryable(err):
		Write(w, http.StatusServiceUnavailable, KindRetryable, "The operation could not commit; please retry.")
	default:
		log.Error("unhandled engine error", zap.Error(err))
		Write(w, http.StatusInternalServerError, KindInternal, "An internal error occurred.")
	}
}

func writePayload(w http.ResponseWriter, status int, p Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}
