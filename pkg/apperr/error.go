package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Validation errors
	CodeInputValidation = "INPUT_VALIDATION"
	CodeBadRequest      = "BAD_REQUEST"
	CodeMissingField    = "MISSING_FIELD"

	// Resource errors
	CodeNotFound = "NOT_FOUND"

	// Auth errors
	CodeUnauthorized = "UNAUTHORIZED"

	// External service errors
	CodeCompletionUnavailable = "COMPLETION_UNAVAILABLE"
	CodeEmbeddingUnavailable  = "EMBEDDING_UNAVAILABLE"
	CodeResponseParse         = "RESPONSE_PARSE"
	CodeIndexBackend          = "INDEX_BACKEND"
	CodeDatabaseError         = "DATABASE_ERROR"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Validation errors
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func InputValidation(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInputValidation,
		Message: fmt.Sprintf("invalid input for '%s': %s", field, reason),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Resource errors
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// External service errors
func CompletionUnavailable(attempts int, err error) *AppError {
	return &AppError{
		Code:    CodeCompletionUnavailable,
		Message: fmt.Sprintf("completion service unavailable after %d attempts", attempts),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"attempts": attempts},
		Err:     err,
	}
}

func EmbeddingUnavailable(err error) *AppError {
	return &AppError{
		Code:    CodeEmbeddingUnavailable,
		Message: "embedding service unavailable",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// ResponseParse carries the raw model output for diagnostics.
func ResponseParse(raw string, err error) *AppError {
	return &AppError{
		Code:    CodeResponseParse,
		Message: "failed to parse structured model response",
		Status:  http.StatusBadGateway,
		Details: map[string]any{"raw": raw},
		Err:     err,
	}
}

func IndexBackend(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeIndexBackend,
		Message: fmt.Sprintf("vector index error: %s", operation),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: fmt.Sprintf("database error: %s", operation),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternalError, "internal server error", http.StatusInternalServerError)
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
