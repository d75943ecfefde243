package apperrors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorTimeout  = 2   // Indicates the valuation did not complete within its budget.
	ExitErrorNumeric  = 3   // Indicates a numeric fault in the sensitivity calculation.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect
// user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError represents an input validation failure. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// TimeoutError represents an expired total valuation budget. It captures the
// operation name and the duration limit that was exceeded.
type TimeoutError struct {
	// Operation is the name of the operation that timed out.
	Operation string
	// Limit is the duration after which the operation was considered timed out.
	Limit time.Duration
}

// Error returns a formatted message describing the timeout.
func (e TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Limit)
}

// MissingPriceError reports that no simulated price exists for a commodity on
// a date required by the sensitivity calculation. The aggregation aborts; no
// substitute or interpolated price is ever used.
type MissingPriceError struct {
	// Commodity is the name of the commodity whose price is missing.
	Commodity string
	// Date is the delivery date for which no simulated price was found.
	Date time.Time
}

// Error returns a formatted message naming the offending commodity and date.
func (e MissingPriceError) Error() string {
	return fmt.Sprintf("simulated price for %s on %s is unavailable", e.Commodity, e.Date.Format("2006-01-02"))
}

// NumericError reports a non-finite value produced by the sensitivity
// calculation, typically a division by zero when the perturbation factor or a
// price sample is exactly zero. The fault is surfaced, never clamped.
type NumericError struct {
	// Quantity names the computed quantity that became non-finite.
	Quantity string
	// Key is the perturbation key being processed when the fault occurred.
	Key string
}

// Error returns a formatted message describing the numeric fault.
func (e NumericError) Error() string {
	return fmt.Sprintf("non-finite %s computed for perturbation %q", e.Quantity, e.Key)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline
// exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
