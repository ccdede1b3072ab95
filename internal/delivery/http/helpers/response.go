package helpers

import (
	"encoding/json"
	"net/http"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeValidation      = "validation_error"
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
// On success: Success is true and Data is set. On error: Success is false, Error is set,
// and Errors holds per-field messages for validation failures.
// swagger:model APIResponse
type APIResponse struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Error   *APIError           `json:"error,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSONSuccess writes statusCode and a success envelope carrying data.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, APIResponse{Success: true, Data: data})
}

// WriteJSONMessage writes a success envelope with a human-readable message. data may be nil.
func WriteJSONMessage(w http.ResponseWriter, statusCode int, data any, message string) {
	writeJSON(w, statusCode, APIResponse{Success: true, Data: data, Message: message})
}

// WriteJSONError writes statusCode and an error envelope with the given code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, APIResponse{
		Message: message,
		Error:   &APIError{Code: code, Message: message},
	})
}

// WriteValidationError writes 422 with the per-field messages in errors.
func WriteValidationError(w http.ResponseWriter, message string, errors map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, APIResponse{
		Message: message,
		Error:   &APIError{Code: ErrCodeValidation, Message: message},
		Errors:  errors,
	})
}
