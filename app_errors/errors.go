package app_errors

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal run failure.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindSerialize
	KindTransport
	KindFormat
	KindSafety
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindSerialize:
		return "serialize error"
	case KindTransport:
		return "transport error"
	case KindFormat:
		return "format error"
	case KindSafety:
		return "safety violation"
	case KindStorage:
		return "storage error"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is matching on the kind of an *Error.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrSerialize     = &Error{Kind: KindSerialize}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrFormat        = &Error{Kind: KindFormat}
	ErrSafety        = &Error{Kind: KindSafety}
	ErrStorage       = &Error{Kind: KindStorage}
)

// Error is the single error type returned by the run pipeline. None of them
// are retried; the command reports it and exits non-zero.
type Error struct {
	Kind Kind
	Msg  string
	Err  error

	// StatusCode is set for transport errors caused by a non-2xx reply.
	StatusCode int
	// Path names the offending file for safety and storage errors.
	Path string
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so callers can match against the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind.
func New(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
