package auth

import (
	"fmt"
	"net/http"
	"time"
)

// Error codes surfaced in the response envelope.
const (
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeTokenInvalid          = "TOKEN_INVALID"
	CodeSessionInvalid        = "SESSION_INVALID"
	CodeWrongTokenType        = "WRONG_TOKEN_TYPE"
	CodeInsufficientRole      = "INSUFFICIENT_ROLE"
	CodeAccountDisabled       = "ACCOUNT_DISABLED"
	CodeLockedOut             = "TEMPORARILY_LOCKED_OUT"
	CodePasswordResetRequired = "PASSWORD_RESET_REQUIRED"
	CodeMaintenanceMode       = "MAINTENANCE_MODE"
	CodeTooManyAttempts       = "TOO_MANY_ATTEMPTS"
	CodeMissingCredentials    = "MISSING_CREDENTIALS"
)

// Error is a coded authentication/authorization failure. Context carries
// machine-readable hints (retryAfter, requiresRefresh, ...) that are
// serialized alongside code and message.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func ErrInvalidCredentials() *Error {
	return &Error{
		Code:    CodeInvalidCredentials,
		Message: "Invalid email or password",
		Status:  http.StatusUnauthorized,
	}
}

func ErrTokenExpired() *Error {
	return &Error{
		Code:    CodeTokenExpired,
		Message: "Access token has expired",
		Status:  http.StatusUnauthorized,
		Context: map[string]any{"requiresRefresh": true},
	}
}

func ErrTokenInvalid() *Error {
	return &Error{
		Code:    CodeTokenInvalid,
		Message: "Token is invalid",
		Status:  http.StatusUnauthorized,
	}
}

func ErrSessionInvalid() *Error {
	return &Error{
		Code:    CodeSessionInvalid,
		Message: "Authentication required",
		Status:  http.StatusUnauthorized,
	}
}

func ErrWrongTokenType() *Error {
	return &Error{
		Code:    CodeWrongTokenType,
		Message: "Wrong token type for this operation",
		Status:  http.StatusUnauthorized,
	}
}

func ErrInsufficientRole() *Error {
	return &Error{
		Code:    CodeInsufficientRole,
		Message: "You do not have permission to perform this action",
		Status:  http.StatusForbidden,
	}
}

func ErrAccountDisabled() *Error {
	return &Error{
		Code:    CodeAccountDisabled,
		Message: "Account is disabled",
		Status:  http.StatusForbidden,
		Context: map[string]any{"requiresAdmin": true},
	}
}

func ErrLockedOut(remaining time.Duration) *Error {
	hours := int(remaining.Hours())
	if remaining > time.Duration(hours)*time.Hour {
		hours++
	}
	return &Error{
		Code:    CodeLockedOut,
		Message: fmt.Sprintf("Account is temporarily locked. Try again in %d hour(s)", hours),
		Status:  http.StatusForbidden,
		Context: map[string]any{"remainingHours": hours},
	}
}

func ErrPasswordResetRequired() *Error {
	return &Error{
		Code:    CodePasswordResetRequired,
		Message: "A password has not been set for this account",
		Status:  http.StatusForbidden,
		Context: map[string]any{"requiresPasswordReset": true},
	}
}

func ErrMaintenanceMode() *Error {
	return &Error{
		Code:    CodeMaintenanceMode,
		Message: "The service is under maintenance. Please try again later",
		Status:  http.StatusServiceUnavailable,
	}
}

func ErrTooManyAttempts(retryAfter, window time.Duration, attempts, maxAttempts int) *Error {
	return &Error{
		Code:    CodeTooManyAttempts,
		Message: "Too many failed attempts. Please try again later",
		Status:  http.StatusTooManyRequests,
		Context: map[string]any{
			"retryAfter":  int(retryAfter.Seconds()),
			"attempts":    attempts,
			"maxAttempts": maxAttempts,
			"window":      window.String(),
		},
	}
}

func ErrMissingCredentials() *Error {
	return &Error{
		Code:    CodeMissingCredentials,
		Message: "Email and password are required",
		Status:  http.StatusBadRequest,
	}
}
