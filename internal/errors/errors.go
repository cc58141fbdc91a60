// ABOUTME: Standardized JSON error responses for the admin HTTP surface.
// ABOUTME: Maps backend, form and transfer errors onto status codes and error codes.

package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/ekoru/admin/internal/backend"
	"github.com/ekoru/admin/internal/form"
	"github.com/ekoru/admin/internal/transfer"
)

// ErrorResponse is the body of every JSON error the admin returns.
//
// Usage:
//
//	WriteError(w, http.StatusBadRequest, ErrInvalidRequest, "unknown export format")
type ErrorResponse struct {
	Code    string `json:"code"`              // machine-readable, e.g. "not_configured"
	Message string `json:"message"`           // human-readable
	Status  int    `json:"status"`            // HTTP status code
	Field   string `json:"field,omitempty"`   // field that failed validation
	Details string `json:"details,omitempty"` // extra context
}

// Error codes.
const (
	// Client errors (4xx)
	ErrInvalidRequest      = "invalid_request"
	ErrInvalidBody         = "invalid_request_body"
	ErrMissingField        = "missing_field"
	ErrValidationFailed    = "validation_failed"
	ErrNotFound            = "not_found"
	ErrConflict            = "conflict"
	ErrPreconditionFailed  = "precondition_failed"
	ErrUnsupportedFormat   = "unsupported_format"
	ErrImportRejected      = "import_rejected"
	ErrRequestEntityTooBig = "request_too_large"

	// Server errors (5xx)
	ErrInternal           = "internal_error"
	ErrDatabaseError      = "database_error"
	ErrBackendUnavailable = "backend_unavailable"
	ErrNotConfigured      = "not_configured"
)

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// WriteErrorWithField writes a JSON error naming the field that caused it.
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Field:   field,
	})
}

// WriteErrorWithDetails writes a JSON error with additional context.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Details: details,
	})
}

// Classify maps an error from the admin's packages to a status and code.
// Unrecognized errors are internal errors.
func Classify(err error) (status int, code string) {
	var verr *form.ValidationError
	var gqlErr *backend.Error
	switch {
	case stderrors.Is(err, backend.ErrNotConfigured):
		return http.StatusNotImplemented, ErrNotConfigured
	case stderrors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, ErrNotFound
	case stderrors.Is(err, backend.ErrConflict):
		return http.StatusConflict, ErrConflict
	case stderrors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrValidationFailed
	case stderrors.Is(err, transfer.ErrNoRows):
		return http.StatusPreconditionFailed, ErrPreconditionFailed
	case stderrors.Is(err, transfer.ErrUnknownFormat):
		return http.StatusBadRequest, ErrUnsupportedFormat
	case stderrors.As(err, &gqlErr):
		return http.StatusBadGateway, ErrBackendUnavailable
	}
	return http.StatusInternalServerError, ErrInternal
}

// WriteFromError classifies err and writes it. Validation errors carry the
// first failing field.
func WriteFromError(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	resp := ErrorResponse{Code: code, Message: err.Error(), Status: status}

	var verr *form.ValidationError
	if stderrors.As(err, &verr) && len(verr.Fields) > 0 {
		resp.Field = verr.Fields[0].Field
		resp.Message = verr.Fields[0].Message
	}
	writeErrorResponse(w, resp)
}

// writeErrorResponse serializes resp to w.
func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}
