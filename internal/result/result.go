// Package result carries the outcome of a remote operation: a value, a transient failure worth retrying, or a fatal one.
package result

import "errors"

// Kind classifies an outcome.
type Kind int

const (
	Success Kind = iota
	Transient
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return ""
	}
}

// Of holds either a value or a classified error.
//
// Failed results may still carry a value (for example an empty lookup) so callers that ignore the kind see a usable zero.
type Of[T any] struct {
	v    T
	kind Kind
	err  error
}

func Ok[T any](v T) Of[T] {
	return Of[T]{v: v, kind: Success}
}

// Retryable wraps err as a transient failure. A nil err is replaced with a generic error.
func Retryable[T any](v T, err error) Of[T] {
	if err == nil {
		err = errors.New("transient failure")
	}
	return Of[T]{v: v, kind: Transient, err: err}
}

// Failed wraps err as a fatal failure. A nil err is replaced with a generic error.
func Failed[T any](v T, err error) Of[T] {
	if err == nil {
		err = errors.New("fatal failure")
	}
	return Of[T]{v: v, kind: Fatal, err: err}
}

// Value returns the carried value regardless of outcome.
func (r Of[T]) Value() T {
	return r.v
}

// ValueOr returns the value on success and def otherwise.
func (r Of[T]) ValueOr(def T) T {
	if r.kind != Success {
		return def
	}
	return r.v
}

func (r Of[T]) Err() error {
	return r.err
}

func (r Of[T]) Kind() Kind {
	return r.kind
}

func (r Of[T]) OK() bool {
	return r.kind == Success
}

func (r Of[T]) IsTransient() bool {
	return r.kind == Transient
}

func (r Of[T]) IsFatal() bool {
	return r.kind == Fatal
}
