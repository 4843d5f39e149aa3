// Package apperr defines the error kinds surfaced by the provisioning engine.
//
// Every failure leaving the engine carries exactly one Kind. Remote and local
// failures are wrapped with E at the point where their meaning is known; any
// error that reaches the boundary without a kind is treated as KindInternal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an engine failure.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status code used by the HTTP surface.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is an engine failure tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E tags err with kind. A nil err yields an error carrying only the kind.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is shorthand for E(kind, op, fmt.Errorf(format, args...)).
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// NotFound, Forbidden, Validation, Conflict and Internal are kind-specific shorthands for E.
func NotFound(op string, err error) error   { return E(KindNotFound, op, err) }
func Forbidden(op string, err error) error  { return E(KindForbidden, op, err) }
func Validation(op string, err error) error { return E(KindValidation, op, err) }
func Conflict(op string, err error) error   { return E(KindConflict, op, err) }
func Internal(op string, err error) error   { return E(KindInternal, op, err) }

// KindOf returns the kind of the outermost tagged error in err's chain.
// Untagged errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Keep re-tags err under op while preserving an existing kind.
// Untagged errors become KindInternal.
func Keep(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Op: op, Err: err}
}
