package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a client failure. Callers other than cancellation
// handling treat all kinds identically.
type ErrorKind string

const (
	ErrKindTimeout   ErrorKind = "timeout"
	ErrKindHTTP      ErrorKind = "http"
	ErrKindParse     ErrorKind = "parse"
	ErrKindAuth      ErrorKind = "auth"
	ErrKindCancelled ErrorKind = "cancelled"
)

// ClientError is the single error category surfaced by every backend. It
// wraps timeouts, HTTP failures, malformed model output, and auth problems.
type ClientError struct {
	Kind    ErrorKind
	Backend string
	Err     error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("llm %s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// NewClientError wraps err with a kind and backend name.
func NewClientError(kind ErrorKind, backend string, err error) *ClientError {
	return &ClientError{Kind: kind, Backend: backend, Err: err}
}

// AsClientError extracts a *ClientError from an error chain.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsCancellation reports whether the error represents external cancellation
// rather than a backend failure. The refiner maps these to the cancelled
// stop reason instead of llm_failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := AsClientError(err); ok && ce.Kind == ErrKindCancelled {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// ClassifyCtx maps a request error to a kind based on the context state:
// deadline expiry is a timeout, cancellation is cancelled, anything else
// falls through to the given default.
func ClassifyCtx(ctx context.Context, fallback ErrorKind) ErrorKind {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrKindTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return ErrKindCancelled
	default:
		return fallback
	}
}
