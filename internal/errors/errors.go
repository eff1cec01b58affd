// Package errors provides custom error types for the expense engine.
// All service-layer errors should use AppError so callers can branch on a
// stable code instead of matching driver messages.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so wrapped
// copies of a sentinel still match it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	// ErrStoreUnavailable is a persistence failure the caller may retry.
	ErrStoreUnavailable = &AppError{Code: "STORE_UNAVAILABLE", Message: "The data store is temporarily unavailable", StatusCode: http.StatusServiceUnavailable}
)

// Expense errors.
var (
	ErrExpenseNotFound = &AppError{Code: "EXPENSE_NOT_FOUND", Message: "Expense not found", StatusCode: http.StatusNotFound}
	ErrExpenseInactive = &AppError{Code: "EXPENSE_INACTIVE", Message: "Expense is no longer active", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrMatchNotFound       = &AppError{Code: "MATCH_NOT_FOUND", Message: "Transaction is not linked to an expense", StatusCode: http.StatusNotFound}
)

// Budget assignment errors.
var (
	ErrAssignmentNotFound = &AppError{Code: "ASSIGNMENT_NOT_FOUND", Message: "Budget assignment not found", StatusCode: http.StatusNotFound}
	ErrInvalidTarget      = &AppError{Code: "INVALID_TARGET", Message: "Assignment must target exactly one of category, goal or asset", StatusCode: http.StatusBadRequest}
	ErrConflict           = &AppError{Code: "CONFLICT", Message: "This allocation was modified elsewhere, please refresh", StatusCode: http.StatusConflict}
)
