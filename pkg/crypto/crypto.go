package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
)

// AuthenticatorLength is the length of RADIUS authenticators in bytes
const AuthenticatorLength = 16

// Authenticator represents a 16-byte RADIUS authenticator
type Authenticator [AuthenticatorLength]byte

// ErrAuthenticatorMismatch indicates authenticator validation failed
var ErrAuthenticatorMismatch = errors.New("authenticator validation failed")

// GenerateRequestAuthenticator generates a random Request Authenticator (RFC 2865 Section 3)
func GenerateRequestAuthenticator() (Authenticator, error) {
	var auth Authenticator
	if _, err := rand.Read(auth[:]); err != nil {
		return auth, fmt.Errorf("failed to generate random authenticator: %w", err)
	}
	return auth, nil
}

// CalculateResponseAuthenticator calculates the Response Authenticator as defined in RFC 2865
// Response Authenticator = MD5(Code + ID + Length + Request Authenticator + Response Attributes + Secret)
func CalculateResponseAuthenticator(code uint8, identifier uint8, length uint16, requestAuth Authenticator, attributes []byte, sharedSecret []byte) Authenticator {
	hash := md5.New()

	hash.Write([]byte{code, identifier, byte(length >> 8), byte(length)})
	hash.Write(requestAuth[:])
	hash.Write(attributes)
	hash.Write(sharedSecret)

	var result Authenticator
	copy(result[:], hash.Sum(nil))
	return result
}

// VerifyResponseAuthenticator checks receivedAuth against the authenticator
// computed from the response fields and returns ErrAuthenticatorMismatch when
// they differ. Comparison is constant time.
func VerifyResponseAuthenticator(code uint8, identifier uint8, length uint16, requestAuth Authenticator, attributes []byte, receivedAuth Authenticator, sharedSecret []byte) error {
	expected := CalculateResponseAuthenticator(code, identifier, length, requestAuth, attributes, sharedSecret)
	if !hmac.Equal(expected[:], receivedAuth[:]) {
		return ErrAuthenticatorMismatch
	}
	return nil
}

// String returns a hex representation of the authenticator
func (a Authenticator) String() string {
	return fmt.Sprintf("%x", a[:])
}
