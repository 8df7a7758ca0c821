// Package apperr defines the business-rule error taxonomy shared by the services and the API layer.
package apperr

import "errors"

// Kind classifies a business-rule failure.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindConflict             Kind = "conflict"
	KindConfirmationRequired Kind = "confirmation_required"
	KindValidation           Kind = "validation"
)

// Error is a business-rule violation with a caller-facing reason.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrConfirmationRequired = &Error{Kind: KindConfirmationRequired}
	ErrValidation           = &Error{Kind: KindValidation}
)

func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

func Conflict(reason string) error {
	return &Error{Kind: KindConflict, Reason: reason}
}

func Validation(reason string) error {
	return &Error{Kind: KindValidation, Reason: reason}
}

func ConfirmationRequired(reason string) error {
	return &Error{Kind: KindConfirmationRequired, Reason: reason}
}

// KindOf returns the Kind of err, or "" when err is not a business-rule error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
