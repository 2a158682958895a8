package worker

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a worker failure.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
	KindEmpty     Kind = "empty"
	KindTimeout   Kind = "timeout"
	KindCanceled  Kind = "canceled"
	KindPanic     Kind = "panic"
)

// Error is returned by every worker backend.
type Error struct {
	Kind   Kind
	Worker string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("worker %s: %s", e.Worker, e.Kind)
	}
	return fmt.Sprintf("worker %s: %s: %v", e.Worker, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, worker string, err error) *Error {
	return &Error{Kind: kind, Worker: worker, Err: err}
}

// KindOf reports the Kind of err. Errors that are not *Error are
// classified by their context cause, or transport otherwise.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindTransport
	}
}

// IsKind reports whether err is a worker error of the given kind.
func IsKind(err error, kind Kind) bool {
	var we *Error
	return errors.As(err, &we) && we.Kind == kind
}

// contextKind maps a finished context to the matching kind.
func contextKind(ctx context.Context) (Kind, bool) {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return KindTimeout, true
	case errors.Is(ctx.Err(), context.Canceled):
		return KindCanceled, true
	default:
		return "", false
	}
}
