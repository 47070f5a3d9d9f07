package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNilSession is returned when a turn is submitted without a session.
var ErrNilSession = errors.New("session is nil")

// ErrInvalidOutput marks a responder output that breaks its contract.
var ErrInvalidOutput = errors.New("invalid responder output")

// ErrUnknownField marks a context update key outside the derived-field set.
var ErrUnknownField = errors.New("unknown derived field")

// ErrAmbiguousRoute is returned when more than one responder claims a stage.
var ErrAmbiguousRoute = errors.New("more than one responder activated")

// InvariantError describes a broken structural invariant of a Session.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("session invariant %s violated: %s", e.Rule, e.Detail)
}

// FieldError describes a context update that could not be applied.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
