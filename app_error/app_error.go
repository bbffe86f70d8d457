package app_error

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
)

// ValidationError indicates a request carried values the engine cannot
// work with (negative raw score, zero raw max, missing scaled override).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError indicates no max score could be resolved for a
// component. Callers must never substitute a default for it.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// StaleContextError indicates an operation referenced a session/term pair
// that is no longer the school's current one.
type StaleContextError struct {
	Message string
}

func (e *StaleContextError) Error() string {
	return e.Message
}

func NewStaleContextError(format string, args ...any) *StaleContextError {
	return &StaleContextError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError indicates a uniqueness violation or a lost state-transition
// race. Retryable by the caller after re-reading current state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ReconciliationError carries the per-row failures of a partially failed
// import or sync batch. The rows that did succeed stay succeeded.
type ReconciliationError struct {
	Message  string
	Failures map[int]string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s (%d rows failed)", e.Message, len(e.Failures))
}

func NewReconciliationError(message string, failures map[int]string) *ReconciliationError {
	return &ReconciliationError{Message: message, Failures: failures}
}

// NotFoundError indicates the addressed record does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func HTTPStatus(err error) int {
	var validationErr *ValidationError
	var configurationErr *ConfigurationError
	var staleContextErr *StaleContextError
	var conflictErr *ConflictError
	var notFoundErr *NotFoundError
	switch {
	case errors.As(err, &validationErr):
		return 400
	case errors.As(err, &notFoundErr):
		return 404
	case errors.As(err, &staleContextErr):
		return 409
	case errors.As(err, &conflictErr):
		return 409
	case errors.As(err, &configurationErr):
		return 422
	default:
		return 500
	}
}

func Handle(c *gin.Context, err error) {
	c.JSON(HTTPStatus(err), gin.H{"error": err.Error()})
}
