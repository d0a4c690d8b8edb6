package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated: no token for a gated operation, or the server
	// answered 401. The session has already been cleared when this is
	// returned from a request.
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrTimeout            = errors.New("request timed out")
	ErrNetwork            = errors.New("network error")
	ErrServer             = errors.New("server error")
)

// StatusError is a non-2xx response not covered by a more specific sentinel.
// It matches ErrServer with errors.Is.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrServer
}
