// Package shared contains common domain types, errors, and events
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
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrPrecondition    = errors.New("precondition not met")

	// Concurrency errors
	ErrConflict = errors.New("concurrent modification detected")

	// Configuration errors
	ErrConfiguration = errors.New("configuration error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "rating", "player"
	Op      string // Operation that failed, e.g., "Submit", "Reveal"
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

// Session domain errors. These are the error kinds surfaced to callers of the
// command surface; none of them indicates a partially-mutated session.
var (
	ErrNoActiveSession          = NewDomainError("session", "Resolve", ErrNotFound, "no active session for group")
	ErrSessionAlreadyOpen       = NewDomainError("session", "Open", ErrAlreadyExists, "a non-terminal session already exists for group")
	ErrNotCheckedIn             = NewDomainError("session", "Submit", ErrPrecondition, "player has no attending check-in")
	ErrInvalidScore             = NewDomainError("session", "Submit", ErrValueOutOfRange, "score must be between 0 and 300")
	ErrAlreadySubmittedBothGames = NewDomainError("session", "Submit", ErrInvalidState, "both game slots are already filled")
	ErrEditAfterReveal          = NewDomainError("session", "Edit", ErrInvalidState, "scores are immutable after reveal")
	ErrRevealNotReady           = NewDomainError("session", "Reveal", ErrPrecondition, "not all attending players have submitted both games")
	ErrRevealConflict           = NewDomainError("session", "Reveal", ErrConflict, "session was revealed or cancelled concurrently")
	ErrCheckInClosed            = NewDomainError("session", "CheckIn", ErrInvalidState, "check-in is not open")
)

// Player domain errors
var (
	ErrUnknownParticipant    = NewDomainError("player", "Find", ErrNotFound, "player is not registered")
	ErrPlayerAlreadyExists   = NewDomainError("player", "Register", ErrAlreadyExists, "player already registered")
	ErrInvalidDivision       = NewDomainError("player", "Validate", ErrValueOutOfRange, "invalid division")
)

// Season domain errors
var (
	ErrNoActiveSeason = NewDomainError("season", "GetActive", ErrNotFound, "no active season")
)

// Rating domain errors
var (
	ErrConfigMissing    = NewDomainError("rating", "LoadConfig", ErrConfiguration, "required configuration key is absent")
	ErrNotEnoughPlayers = NewDomainError("rating", "ComputeReveal", ErrPrecondition, "rating needs at least one complete player")
)
