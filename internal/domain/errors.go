package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Error codes surfaced to API callers.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeDuplicateRequest       = "DUPLICATE_REQUEST"
	CodeValidation             = "VALIDATION_ERROR"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeRateLimited            = "RATE_LIMITED"
	CodeAccountLocked          = "ACCOUNT_LOCKED"
	CodeInternal               = "INTERNAL_ERROR"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeAccountDisabled        = "ACCOUNT_DISABLED"
	CodeAccountUnverified      = "ACCOUNT_UNVERIFIED"
	CodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	CodeNoPendingOTP           = "NO_PENDING_OTP"
	CodeOTPExpired             = "OTP_EXPIRED"
	CodeOTPTooManyAttempts     = "OTP_TOO_MANY_ATTEMPTS"
	CodeOTPInvalid             = "OTP_INVALID"
	CodeOriginUnavailable      = "ORIGIN_RESOLUTION_UNAVAILABLE"
	CodeUserNotFound           = "USER_NOT_FOUND"
)

// HasCode reports whether err (or anything it wraps) is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Status: 409}
}

func ErrDuplicateRequest() *AppError {
	return &AppError{Code: CodeDuplicateRequest, Message: "idempotency key already used", Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Status: 403}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: CodeRateLimited, Message: msg, Status: 429}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: CodeAccountLocked, Message: msg, Status: 429}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}

// Authentication and OTP errors. These are returned to the caller as structured
// results so the client can render a message.

func ErrInvalidCredentials() *AppError {
	return &AppError{Code: CodeInvalidCredentials, Message: "invalid credentials", Status: 401}
}

func ErrAccountDisabled() *AppError {
	return &AppError{Code: CodeAccountDisabled, Message: "account disabled", Status: 403}
}

func ErrAccountUnverified() *AppError {
	return &AppError{Code: CodeAccountUnverified, Message: "account not verified", Status: 403}
}

func ErrEmailAlreadyRegistered() *AppError {
	return &AppError{Code: CodeEmailAlreadyRegistered, Message: "email already registered", Status: 409}
}

func ErrNoPendingOTP() *AppError {
	return &AppError{Code: CodeNoPendingOTP, Message: "no pending OTP", Status: 400}
}

func ErrOTPExpired() *AppError {
	return &AppError{Code: CodeOTPExpired, Message: "OTP expired", Status: 400}
}

func ErrOTPTooManyAttempts() *AppError {
	return &AppError{Code: CodeOTPTooManyAttempts, Message: "too many attempts, request a new OTP", Status: 429}
}

func ErrOTPInvalid() *AppError {
	return &AppError{Code: CodeOTPInvalid, Message: "invalid OTP", Status: 400}
}

// ErrOriginUnavailable is never surfaced to API callers; the collector swaps in a
// fallback origin when it sees it.
func ErrOriginUnavailable(cause error) *AppError {
	return &AppError{Code: CodeOriginUnavailable, Message: "origin resolution unavailable", Status: 503, Cause: cause}
}

func ErrUserNotFound(id string) *AppError {
	return &AppError{Code: CodeUserNotFound, Message: fmt.Sprintf("user %s not found", id), Status: 404}
}
