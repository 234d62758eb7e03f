// Package apierr carries the typed error kinds the HTTP layer maps to
// status codes, without string-sniffing wrapped errors.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is one of the four error categories the API surface distinguishes.
type Kind string

const (
	KindInvalidQuery        Kind = "invalid_query"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindNotFound            Kind = "not_found"
	KindInternal            Kind = "internal"
)

// Error wraps an underlying cause with a Kind the handler layer can switch
// on via errors.As.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func InvalidQuery(msg string, err error) *Error {
	return Wrap(KindInvalidQuery, msg, err)
}

func UpstreamUnavailable(msg string, err error) *Error {
	return Wrap(KindUpstreamUnavailable, msg, err)
}

func NotFound(msg string) *Error {
	return New(KindNotFound, msg)
}

func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// As extracts the apierr.Error from err, if any, and reports whether it
// found one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
