package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-devicesettings/internal/capability"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeGateClosed  = "gate_closed"
	ErrCodeHardware    = "hardware_error"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnsupported = "unsupported"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeFacetError maps an error returned by a facet onto a response.
// Unknown errors are reported as 500 without leaking their text.
func writeFacetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hal.ErrInvalidPort), errors.Is(err, hal.ErrInvalidIndicator):
		writeNotFound(w, err.Error())
	case errors.Is(err, capability.ErrGateClosed):
		writeError(w, http.StatusConflict, ErrCodeGateClosed, err.Error())
	case errors.Is(err, capability.ErrInvalidValue), errors.Is(err, hal.ErrOutOfRange):
		writeBadRequest(w, err.Error())
	case errors.Is(err, hal.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, ErrCodeUnsupported, err.Error())
	case errors.Is(err, capability.ErrHardware):
		writeError(w, http.StatusServiceUnavailable, ErrCodeHardware, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}
