// Package apperror defines the closed error taxonomy surfaced by the booking engine.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the HTTP boundary.
type Kind int

const (
	// KindPersistence is the zero value so unclassified failures are treated as fatal.
	KindPersistence Kind = iota
	KindValidation
	KindConstraintViolation
	KindNotAvailable
	KindAllocationConflict
	KindInvalidControllerCount
	KindTimeout
	KindNotFound
)

// Code returns the wire code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindNotAvailable:
		return "not_available"
	case KindAllocationConflict:
		return "allocation_conflict"
	case KindInvalidControllerCount:
		return "invalid_controller_count"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	default:
		return "persistence_error"
	}
}

func (k Kind) String() string { return k.Code() }

// Error is a classified error. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperror.NotAvailable) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind markers for errors.Is.
var (
	Validation             = &Error{Kind: KindValidation}
	ConstraintViolation    = &Error{Kind: KindConstraintViolation}
	NotAvailable           = &Error{Kind: KindNotAvailable}
	AllocationConflict     = &Error{Kind: KindAllocationConflict}
	InvalidControllerCount = &Error{Kind: KindInvalidControllerCount}
	Persistence            = &Error{Kind: KindPersistence}
	Timeout                = &Error{Kind: KindTimeout}
	NotFound               = &Error{Kind: KindNotFound}
)

// New returns a classified error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a message.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindPersistence.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}
