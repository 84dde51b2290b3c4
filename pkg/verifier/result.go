package verifier

import (
	"errors"
	"fmt"

	"github.com/vitalvas/hdverifier/pkg/client"
	"github.com/vitalvas/hdverifier/pkg/packet"
)

// Status is the terminal state of a verification.
type Status int

const (
	StatusVerified Status = iota + 1
	StatusRejected
	StatusChallenged
	// StatusInvalidInput covers missing fields and values that cannot be
	// encoded. Nothing is sent on the network.
	StatusInvalidInput
	// StatusTransportError covers timeouts and socket failures.
	StatusTransportError
	// StatusProtocolError covers malformed, unauthenticated or unexpected replies.
	StatusProtocolError
)

// String returns the metric label form of the status
func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusRejected:
		return "rejected"
	case StatusChallenged:
		return "challenged"
	case StatusInvalidInput:
		return "invalid_input"
	case StatusTransportError:
		return "transport_error"
	case StatusProtocolError:
		return "protocol_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Result is the outcome of one Verify or VerifyPush call.
type Result struct {
	Status Status
	// Code is the response code, zero when no valid reply was received.
	Code packet.Code
	// Err carries the failure detail for error statuses.
	Err error
	// RequestID correlates the result with log lines.
	RequestID string

	message string
}

// OK reports whether the user was verified.
func (r Result) OK() bool {
	return r.Status == StatusVerified
}

// Message returns the text shown to the helpdesk operator.
func (r Result) Message() string {
	if r.message != "" {
		return r.message
	}

	switch r.Status {
	case StatusVerified:
		return "User ID Verified"
	case StatusRejected:
		return "User ID Verification Failed"
	case StatusChallenged:
		return "User ID Not Verified (Challenge)"
	case StatusTransportError:
		if errors.Is(r.Err, client.ErrTimeout) {
			return fmt.Sprintf("Error: radius timeout? %v", r.Err)
		}
		return fmt.Sprintf("Error: %v", r.Err)
	case StatusProtocolError:
		if errors.Is(r.Err, ErrUnexpectedCode) {
			return fmt.Sprintf("Error: Unexpected response code: %d", r.Code)
		}
		return fmt.Sprintf("Error: invalid response: %v", r.Err)
	default:
		if r.Err != nil {
			return fmt.Sprintf("Error: %v", r.Err)
		}
		return "Error: verification failed"
	}
}

// String implements fmt.Stringer
func (r Result) String() string {
	return fmt.Sprintf("%s: %s", r.Status, r.Message())
}
