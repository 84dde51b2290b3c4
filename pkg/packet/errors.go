package packet

import "errors"

var (
	// ErrEncoding indicates a value cannot be represented in an attribute.
	ErrEncoding = errors.New("encoding error")

	// ErrMalformedPacket indicates the datagram is not a well-formed RADIUS packet.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrIdentifierMismatch indicates a response for some other request.
	// Callers waiting on a reply should discard the datagram and keep waiting.
	ErrIdentifierMismatch = errors.New("identifier mismatch")

	// ErrAuthenticatorMismatch indicates the response authenticator does not
	// verify against the request and shared secret.
	ErrAuthenticatorMismatch = errors.New("response authenticator mismatch")

	// ErrNoFreeIdentifier indicates all 256 identifiers are awaiting replies.
	ErrNoFreeIdentifier = errors.New("no free packet identifier")
)
