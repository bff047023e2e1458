package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodePoolEmpty       = "POOL_EMPTY"
	ErrCodeSessionOpen     = "SESSION_OPEN_FAILED"
	ErrCodeSubmission      = "SUBMISSION_FAILED"
	ErrCodeCompletion      = "COMPLETION_FAILED"
	ErrCodeBudgetExhausted = "RETRY_BUDGET_EXHAUSTED"
	ErrCodeBrowserCrash    = "BROWSER_CRASH"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BookingError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type BookingError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// NewBookingError creates a new BookingError.
func NewBookingError(code, message string, err error) *BookingError {
	return &BookingError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *BookingError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
