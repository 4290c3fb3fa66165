package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers MUST use these constants instead of
// hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationMissingRouteID     ErrorCode = "validation_missing_route_id"
	ErrCodeValidationInvalidObservedAt  ErrorCode = "validation_invalid_observed_time"
	ErrCodeValidationInvalidOutcome     ErrorCode = "validation_invalid_outcome"
	ErrCodeValidationInvalidServiceDate ErrorCode = "validation_invalid_service_date"
	ErrCodeValidationInvalidLimit       ErrorCode = "validation_invalid_limit"
	ErrCodeValidationInvalidScore       ErrorCode = "validation_invalid_score"
	ErrCodeValidationMissingField       ErrorCode = "validation_missing_required_field"

	// Auth (401)
	ErrCodeAuthJobTokenMissing ErrorCode = "auth_job_token_missing"
	ErrCodeAuthJobTokenInvalid ErrorCode = "auth_job_token_invalid"

	// Not Found (404)
	ErrCodeNotFoundCorridor ErrorCode = "not_found_corridor"
	ErrCodeNotFoundTerminal ErrorCode = "not_found_terminal"
	ErrCodeNotFoundRoute    ErrorCode = "not_found_route"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB          ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeInternalJobToken    ErrorCode = "internal_job_token_unset"
	ErrCodeUpstreamWeather     ErrorCode = "upstream_weather_unavailable"
	ErrCodeUpstreamTide        ErrorCode = "upstream_tide_unavailable"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent error formatting,
// HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
