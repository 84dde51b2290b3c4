package verifier

import "errors"

var (
	// ErrConfiguration indicates the verifier cannot be constructed.
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingFields indicates a blank username or credential.
	ErrMissingFields = errors.New("missing required fields")

	// ErrUnexpectedCode indicates a reply code other than Accept, Reject or Challenge.
	ErrUnexpectedCode = errors.New("unexpected response code")
)
