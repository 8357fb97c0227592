package helpers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"meetsync/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeTooManyRequests = "too_many_requests"
	ErrCodeInternalError   = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, APIResponse{Data: data, Error: nil})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

// WriteJSON encodes v as the whole response body. The /api endpoints use it for their flat
// {success}, {url}, {received} and {error} bodies.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// LegacyError is the flat error body of the /api endpoints.
type LegacyError struct {
	Error string `json:"error"`
}

// WriteLegacyError writes {"error": message}.
func WriteLegacyError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, LegacyError{Error: message})
}

// StatusForError maps domain sentinel errors to an HTTP status and error code.
// Unknown errors map to 500.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownPlan),
		errors.Is(err, domain.ErrNoCustomer),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrAlreadyInvited), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, ErrCodeConflict
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// PublicMessage returns a message safe to show to clients. Internal errors are not echoed.
func PublicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
