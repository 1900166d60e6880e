package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable        = errors.New("server unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrServer             = errors.New("server error")
	ErrBadResponse        = errors.New("malformed response")
)

// ServerError is a non-2xx answer. Message is what the server said, kept
// verbatim for display.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

func (e *ServerError) Unwrap() error {
	return ErrServer
}

// kindError pairs a sentinel with the server's answer so callers can match
// the sentinel and still read the message.
type kindError struct {
	kind error
	err  *ServerError
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.err.Message)
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}

// Message extracts the server-supplied message from err, if any.
func Message(err error) (string, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message, true
	}
	return "", false
}
