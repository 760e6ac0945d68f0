package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Result is the envelope every backend call returns. Exactly one of Data and
// Err is meaningful: Err == nil means Data holds a validated payload.
type Result[T any] struct {
	Data T
	Err  error
}

// OK wraps a successful payload.
func OK[T any](v T) Result[T] {
	return Result[T]{Data: v}
}

// Fail wraps an error. A nil err is replaced so the result never looks successful.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Result[T]{Err: err}
}

// Ok reports whether the call succeeded.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Message returns the text shown to a user for a failed result: the server's
// detail when present, else "HTTP <code>: <status>", else the underlying error.
func (r Result[T]) Message() string {
	if r.Err == nil {
		return ""
	}
	var se *ServerError
	if errors.As(r.Err, &se) && se.Detail != "" {
		return se.Detail
	}
	return r.Err.Error()
}

// TransportError means no HTTP response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Detail carries the body's "detail" field.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// DecodeError is a 2xx response whose body is not the expected payload,
// either malformed JSON or content that fails validation.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
