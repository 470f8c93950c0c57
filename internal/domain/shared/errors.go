// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "assignment", "member", "book"
	Op      string // Operation that failed, e.g., "Create", "Complete"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Period domain errors
var (
	ErrPeriodNotFound    = NewDomainError("period", "Find", ErrNotFound, "reading period not found")
	ErrInvalidPeriodSpan = NewDomainError("period", "Validate", ErrValidation, "start date must be before end date")
	ErrStageNotFound     = NewDomainError("period", "FindStage", ErrNotFound, "stage not found")
	ErrStageExists       = NewDomainError("period", "CreateStage", ErrAlreadyExists, "stage number already used in this period")
)

// Book domain errors
var (
	ErrBookNotFound     = NewDomainError("book", "Find", ErrNotFound, "book not found")
	ErrInvalidBookScore = NewDomainError("book", "Validate", ErrNegativeValue, "book scores must not be negative")
)

// Member domain errors
var (
	ErrMemberNotFound      = NewDomainError("member", "Find", ErrNotFound, "member not found")
	ErrMemberNotActive     = NewDomainError("member", "CheckStatus", ErrValidation, "member is not active")
	ErrMemberAlreadyLinked = NewDomainError("member", "Link", ErrAlreadyExists, "member already has an account")
	ErrNoCurrentStage      = NewDomainError("member", "Advance", ErrInvalidState, "member has no current stage")
)

// Assignment domain errors
var (
	ErrAssignmentNotFound  = NewDomainError("assignment", "Find", ErrNotFound, "assignment not found")
	ErrAlreadyCompleted    = NewDomainError("assignment", "Complete", ErrInvalidState, "assignment already completed")
	ErrBookNotInStage      = NewDomainError("assignment", "Validate", ErrValidation, "book does not belong to the member's current stage")
	ErrNoCopiesAvailable   = NewDomainError("assignment", "Validate", ErrValidation, "no copies of the book are available")
	ErrBookAlreadyRead     = NewDomainError("assignment", "Validate", ErrValidation, "member has already completed this book")
	ErrQuizScoreOutOfRange = NewDomainError("assignment", "Validate", ErrValueOutOfRange, "quiz score must be between 0 and 100")
)

// Notification domain errors
var (
	ErrNotificationNotFound = NewDomainError("notification", "Find", ErrNotFound, "notification not found")
	ErrRecipientRequired    = NewDomainError("notification", "Validate", ErrValidation, "private notifications need a recipient")
	ErrInvalidNotifyKind    = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification kind")
)

// Account and session errors
var (
	ErrUsernameTaken    = NewDomainError("account", "Create", ErrAlreadyExists, "username already taken")
	ErrUserNotFound     = NewDomainError("account", "Find", ErrNotFound, "user not found")
	ErrWeakPassword     = NewDomainError("account", "Validate", ErrValidation, "password must be at least 8 characters")
	ErrNoOpenSession    = NewDomainError("activity", "EndSession", ErrNotFound, "no open session")
	ErrSessionEndBefore = NewDomainError("activity", "EndSession", ErrValidation, "logout is before login")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidState checks if the error is a state error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
