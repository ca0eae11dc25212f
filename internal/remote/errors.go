package remote

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable = errors.New("remote store unreachable")
	ErrRejected    = errors.New("remote store rejected request")
)

// UnavailableError wraps a transport-level failure: the store could not
// be reached at all.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrUnavailable, e.Err)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// RejectedError wraps a non-2xx response: the store was reachable but
// refused the request. Message carries the error body text when the
// store sent one.
type RejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v: status %d: %s", e.Op, ErrRejected, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %v: status %d", e.Op, ErrRejected, e.Status)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }
