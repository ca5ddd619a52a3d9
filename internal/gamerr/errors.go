// Package gamerr defines the shared error taxonomy for the session engine.
// Validation and conflict errors are recoverable and reported to the
// requesting client only; persistence errors trigger compensating refunds
// where a debit already occurred. The engine degrades to "report error,
// preserve invariants" rather than crashing.
package gamerr

import (
	"errors"
	"fmt"
)

// Error codes reported to clients.
const (
	CodeTooCloseToFranchise          = "TOO_CLOSE_TO_FRANCHISE"
	CodeNoDistributionCenter         = "NO_DISTRIBUTION_CENTER"
	CodeTooFarFromDistributionCenter = "TOO_FAR_FROM_DISTRIBUTION_CENTER"
	CodeOutOfBounds                  = "OUT_OF_BOUNDS"
	CodeInsufficientFunds            = "INSUFFICIENT_FUNDS"
	CodeNotHost                      = "NOT_HOST"
	CodeNotYourTurn                  = "NOT_YOUR_TURN"
	CodeNotOwner                     = "NOT_OWNER"
	CodeGameNotFound                 = "GAME_NOT_FOUND"
	CodeGameNotLive                  = "GAME_NOT_LIVE"
	CodePersistence                  = "PERSISTENCE_FAILED"
	CodeBadRequest                   = "BAD_REQUEST"
)

// ValidationError reports a placement geometry or funds failure. No state
// mutation occurred.
type ValidationError struct {
	Code string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewValidation creates a ValidationError.
func NewValidation(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports an operation the caller is not allowed to perform in
// the current state (non-host start, out-of-turn advance). No mutation.
type ConflictError struct {
	Code string
	Msg  string
}

func (e *ConflictError) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewConflict creates a ConflictError.
func NewConflict(code, format string, args ...any) *ConflictError {
	return &ConflictError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a failed store call. Financial effects are already
// compensated by the time it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Code maps an engine error onto the client-facing code surface.
func Code(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return CodePersistence
	}
	return CodeBadRequest
}
