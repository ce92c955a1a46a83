// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Valuation input errors
	ErrInvalidRate     = &Error{Code: "INVALID_RATE", Message: "exchange rate must be positive"}
	ErrInvalidCurrency = &Error{Code: "INVALID_CURRENCY", Message: "unsupported currency"}

	// Profile errors
	ErrProfileNotFound = &Error{Code: "PROFILE_NOT_FOUND", Message: "profile not found"}
	ErrHoldingNotFound = &Error{Code: "HOLDING_NOT_FOUND", Message: "holding not found"}
	ErrInvalidProfile  = &Error{Code: "INVALID_PROFILE", Message: "invalid profile"}
	ErrInvalidHolding  = &Error{Code: "INVALID_HOLDING", Message: "invalid holding"}
	ErrLastProfile     = &Error{Code: "LAST_PROFILE", Message: "cannot delete the only profile"}
	ErrNoPrices        = &Error{Code: "NO_PRICES", Message: "no holding has a current price"}
	ErrNotFound        = &Error{Code: "NOT_FOUND", Message: "resource not found"}
	ErrInvalidRequest  = &Error{Code: "INVALID_REQUEST", Message: "invalid request"}

	// Collaborator errors
	ErrQuoteFailed   = &Error{Code: "QUOTE_FAILED", Message: "quote fetch failed"}
	ErrFXFailed      = &Error{Code: "FX_FAILED", Message: "exchange rate fetch failed"}
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}
	ErrCacheFailed   = &Error{Code: "CACHE_FAILED", Message: "price cache failed"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Auth errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid api key"}

	// LLM errors
	ErrLLMFailed        = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout       = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
	ErrLLMContentFilter = &Error{Code: "LLM_CONTENT_FILTER", Message: "LLM response blocked by content filter"}
)
