package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds. Services wrap these with %w so handlers can map
// them to HTTP statuses without string matching.
var (
	// ErrValidation: missing or malformed required input. No state mutated.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState: a state-machine precondition rejected the operation
	// against the latest persisted state.
	ErrInvalidState = errors.New("invalid state")

	// ErrRiskBlocked: policy veto, not a data-consistency violation.
	ErrRiskBlocked = errors.New("blocked by risk policy")

	// ErrConfirmRequired: the operation needs an explicit confirm step.
	ErrConfirmRequired = errors.New("confirmation required")

	// ErrNotFound: a required identity record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted: benign no-op signal for duplicate completion.
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrExternal: an upstream service failed; the caller may retry.
	ErrExternal = errors.New("external service failure")

	// ErrClaimGeneration: trip is COMPLETED but its claim could not be
	// written. Recoverable inconsistency that must reach the user.
	ErrClaimGeneration = errors.New("claim generation failed")
)

// Validationf wraps ErrValidation with a message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// InvalidStatef wraps ErrInvalidState with a message.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidState}, args...)...)
}

// NotFoundf wraps ErrNotFound with a message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Status maps an error to the HTTP status a handler should return.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrRiskBlocked), errors.Is(err, ErrConfirmRequired):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyCompleted):
		return http.StatusOK
	case errors.Is(err, ErrExternal), errors.Is(err, ErrClaimGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the failure is worth retrying as-is.
// InvalidState and RiskBlocked are "you cannot do this right now";
// external failures are "something went wrong, retry".
func Retryable(err error) bool {
	return errors.Is(err, ErrExternal) || errors.Is(err, ErrClaimGeneration)
}
