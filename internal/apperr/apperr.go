// Package apperr defines the error taxonomy shared by the lead engine.
//
// ValidationError, NotFoundError, ConflictError and ExpiredError describe
// expected outcomes that callers turn into user-facing messages.
// InvariantViolation marks a defect in commission math and must never be
// coerced into a valid-looking result.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Re-exported so callers can import one errors package.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// ErrNotFound is returned by stores when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidation returns a ValidationError for field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown auction, agent, property or deal id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Unwrap lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound returns a NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports a state conflict such as an already assigned auction
// or an already recorded commission.
type ConflictError struct {
	Resource string
	ID       string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Resource, e.ID, e.Reason)
}

// NewConflict returns a ConflictError.
func NewConflict(resource, id, reason string) *ConflictError {
	return &ConflictError{Resource: resource, ID: id, Reason: reason}
}

// ExpiredError reports an operation attempted after an auction deadline.
type ExpiredError struct {
	AuctionID string
	Deadline  time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("auction %q expired at %s", e.AuctionID, e.Deadline.Format(time.RFC3339))
}

// InvariantViolation reports commission math that fails its checks.
// It signals a defect in the scenario templates, not bad input.
type InvariantViolation struct {
	Check  string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s: %s", e.Check, e.Detail)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsExpired reports whether err is an ExpiredError.
func IsExpired(err error) bool {
	var x *ExpiredError
	return errors.As(err, &x)
}

// IsInvariant reports whether err is an InvariantViolation.
func IsInvariant(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
