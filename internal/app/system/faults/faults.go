// Package faults defines the error taxonomy surfaced at the service boundary.
//
// Handlers map each Kind onto a distinct HTTP status so callers can branch on
// the failure class (retry, re-authenticate, verify manually) instead of
// guessing from a generic 500.
package faults

import (
	"errors"
	"net/http"
)

// Kind classifies a boundary-visible failure.
type Kind int

const (
	// Authentication: missing, invalid, or expired credentials/token.
	Authentication Kind = iota + 1
	// Authorization: the caller's role or scope is insufficient.
	Authorization
	// NotFound: identity, lodge, or scope absent.
	NotFound
	// Conflict: duplicate email, or candidate already holds the target role.
	Conflict
	// Consistency: post-write read-back shows divergent representations.
	Consistency
	// Validation: missing required fields or mismatched scopes.
	Validation
)

// Error is a classified error. Msg is safe to return to callers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error with the given message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, or 0 when err carries no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// HTTPStatus maps a Kind onto the HTTP status handlers respond with.
// Unclassified errors map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Consistency:
		return http.StatusBadGateway
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
