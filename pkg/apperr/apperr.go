// Package apperr defines the error categories surfaced by the use-cases.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller
type Kind int

const (
	// KindInternal is an uncategorized collaborator failure
	KindInternal Kind = iota
	// KindInvalidArgument marks a failed precondition on caller input
	KindInvalidArgument
	// KindNotFound marks a missing or foreign resource
	KindNotFound
	// KindDomainConflict marks a resource in a state that forbids the operation
	KindDomainConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindDomainConflict:
		return "domain_conflict"
	default:
		return "internal"
	}
}

// Error is a categorized error. Message is safe to show to the caller,
// Err keeps the underlying cause for server-side logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidArgument returns a KindInvalidArgument error
func InvalidArgument(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// DomainConflict returns a KindDomainConflict error
func DomainConflict(format string, args ...interface{}) error {
	return &Error{Kind: KindDomainConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps err as KindInternal with a generic message.
// An error that already carries a category is returned unchanged.
func Internal(err error, message string) error {
	if err == nil {
		return nil
	}
	var categorized *Error
	if errors.As(err, &categorized) {
		return err
	}
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the category of err; uncategorized errors are internal
func KindOf(err error) Kind {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given category
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the caller-facing text of err
func PublicMessage(err error) string {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Message
	}
	return "Internal server error"
}
