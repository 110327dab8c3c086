package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches AppErrors by code so wrapped copies still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}
)

// Outbound-send authorization errors. Each failure class is distinct so
// callers can tell whether requesting a fresh code makes sense.
var (
	ErrRecipientNotAllowed = &AppError{
		Code:       "send.not_allowed",
		Message:    "Recipient is not allowed",
		StatusCode: http.StatusBadRequest,
	}

	ErrSourceEmailNotFound = &AppError{
		Code:       "send.source_not_found",
		Message:    "Source email not found",
		StatusCode: http.StatusNotFound,
	}

	ErrOTPDeliveryFailed = &AppError{
		Code:       "send.delivery_failed",
		Message:    "Could not deliver the confirmation code",
		StatusCode: http.StatusBadGateway,
	}

	ErrTokenNotFound = &AppError{
		Code:       "send.token_not_found",
		Message:    "Unknown send request",
		StatusCode: http.StatusNotFound,
	}

	ErrTokenExpired = &AppError{
		Code:       "send.expired",
		Message:    "Confirmation code expired",
		StatusCode: http.StatusBadRequest,
	}

	ErrTooManyAttempts = &AppError{
		Code:       "send.too_many_attempts",
		Message:    "Too many verification attempts",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidCode = &AppError{
		Code:       "send.invalid_code",
		Message:    "Invalid confirmation code",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidTokenState = &AppError{
		Code:       "send.invalid_state",
		Message:    "Send request is not pending",
		StatusCode: http.StatusBadRequest,
	}

	ErrMalformedToken = &AppError{
		Code:       "send.malformed_token",
		Message:    "Stored token is malformed",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// NewRateLimited reports which window was exceeded and its configured limit.
func NewRateLimited(reason string) *AppError {
	return &AppError{
		Code:       ErrRateLimit.Code,
		Message:    fmt.Sprintf("Rate limit exceeded: %s", reason),
		StatusCode: ErrRateLimit.StatusCode,
	}
}

// NewInvalidTokenState surfaces the current terminal status for diagnostics
// without ever claiming the code itself was wrong.
func NewInvalidTokenState(status string) *AppError {
	return &AppError{
		Code:       ErrInvalidTokenState.Code,
		Message:    fmt.Sprintf("Send request is not pending (token status: %s)", status),
		StatusCode: ErrInvalidTokenState.StatusCode,
	}
}
