package client

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates no matching reply arrived within the retry budget.
var ErrTimeout = errors.New("no response from server")

// NetworkError wraps a socket-level failure.
type NetworkError struct {
	Op   string
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
