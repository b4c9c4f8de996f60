package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error wraps provider errors with status metadata.
type Error struct {
	Client    string
	Status    int
	Temporary bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return "client error"
	}
	if e.Err != nil {
		if e.Client != "" {
			return fmt.Sprintf("%s: %s", e.Client, e.Err.Error())
		}
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: client error (status=%d)", e.Client, e.Status)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry. Rate limits,
// server errors, and timeouts are transient; auth failures, malformed
// requests, and cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var clientErr *Error
	if errors.As(err, &clientErr) {
		if clientErr.Temporary {
			return true
		}
		if clientErr.Status == 429 || (clientErr.Status >= 500 && clientErr.Status <= 599) {
			return true
		}
	}
	return false
}
