package helpers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cheese-stick/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type CheeseStickError struct {
	Message string
	Cause   error
}

func (e *CheeseStickError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CheeseStickError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds, used with errors.As by the HTTP layer to pick a status.
type ConfigurationError struct{ CheeseStickError }
type NetworkError struct{ CheeseStickError }
type DataSourceError struct{ CheeseStickError }
type DatabaseError struct{ CheeseStickError }
type ValidationError struct{ CheeseStickError }
type NotFoundError struct{ CheeseStickError }

// NewConfigurationError wraps cause as a ConfigurationError.
func NewConfigurationError(cause error, format string, args ...interface{}) error {
	return &ConfigurationError{CheeseStickError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{CheeseStickError{Message: fmt.Sprintf(format, args...)}}
}

// NewNotFoundError builds a NotFoundError from a format string.
func NewNotFoundError(format string, args ...interface{}) error {
	return &NotFoundError{CheeseStickError{Message: fmt.Sprintf(format, args...)}}
}

// NewDataSourceError wraps cause as a DataSourceError.
func NewDataSourceError(cause error, format string, args ...interface{}) error {
	return &DataSourceError{CheeseStickError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// NewDatabaseError wraps cause as a DatabaseError.
func NewDatabaseError(cause error, format string, args ...interface{}) error {
	return &DatabaseError{CheeseStickError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff[T any](operation string, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if maxRetries < 1 {
		maxRetries = 1
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 || IsValidation(err) || IsNotFound(err) {
			break
		}

		time.Sleep(baseDelay * (1 << attempt))
	}

	return zero, &CheeseStickError{Message: fmt.Sprintf("%s failed", operation), Cause: lastErr}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger                 *logger.Logger
	ErrorCount             int
	MaxErrorsBeforeRestart int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{
		Logger:                 log,
		MaxErrorsBeforeRestart: 10,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Classify wraps err into a typed error based on the operation name.
func Classify(operation string, err error) error {
	base := CheeseStickError{Message: fmt.Sprintf("%s failed", operation), Cause: err}
	lowerOp := strings.ToLower(operation)
	switch {
	case strings.Contains(lowerOp, "network") || strings.Contains(lowerOp, "fetch"):
		return &NetworkError{base}
	case strings.Contains(lowerOp, "database") || strings.Contains(lowerOp, "save") || strings.Contains(lowerOp, "load"):
		return &DatabaseError{base}
	default:
		return &base
	}
}

// -----------------------------------------------------------------------------

// Handle logs err with context; nil errors are ignored.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.ErrorCount++
	e.Logger.Error("Error in %s: %v", context, err)
	if e.MaxErrorsBeforeRestart > 0 && e.ErrorCount >= e.MaxErrorsBeforeRestart {
		e.Logger.Warning("%d errors recorded since last reset", e.ErrorCount)
	}
}
