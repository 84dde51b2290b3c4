package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequestAuthenticator(t *testing.T) {
	auth1, err := GenerateRequestAuthenticator()
	require.NoError(t, err)
	assert.Len(t, auth1, AuthenticatorLength)

	auth2, err := GenerateRequestAuthenticator()
	require.NoError(t, err)

	// Should be different (extremely unlikely to be the same)
	assert.NotEqual(t, auth1, auth2)
	assert.NotEqual(t, Authenticator{}, auth1)
}

func TestCalculateResponseAuthenticator(t *testing.T) {
	requestAuth := Authenticator{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	sharedSecret := []byte("secret")
	attributes := []byte{0x01, 0x06, 0x00, 0x00, 0x00, 0x01}

	responseAuth := CalculateResponseAuthenticator(2, 123, 26, requestAuth, attributes, sharedSecret)
	assert.NotEqual(t, Authenticator{}, responseAuth)

	// Should be deterministic
	assert.Equal(t, responseAuth, CalculateResponseAuthenticator(2, 123, 26, requestAuth, attributes, sharedSecret))

	// Every input participates
	assert.NotEqual(t, responseAuth, CalculateResponseAuthenticator(3, 123, 26, requestAuth, attributes, sharedSecret))
	assert.NotEqual(t, responseAuth, CalculateResponseAuthenticator(2, 124, 26, requestAuth, attributes, sharedSecret))
	assert.NotEqual(t, responseAuth, CalculateResponseAuthenticator(2, 123, 26, Authenticator{}, attributes, sharedSecret))
	assert.NotEqual(t, responseAuth, CalculateResponseAuthenticator(2, 123, 26, requestAuth, attributes, []byte("other")))
}

func TestVerifyResponseAuthenticator(t *testing.T) {
	requestAuth := Authenticator{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	sharedSecret := []byte("secret")
	attributes := []byte{0x01, 0x06, 0x00, 0x00, 0x00, 0x01}

	responseAuth := CalculateResponseAuthenticator(2, 123, 26, requestAuth, attributes, sharedSecret)

	assert.NoError(t, VerifyResponseAuthenticator(2, 123, 26, requestAuth, attributes, responseAuth, sharedSecret))

	invalidAuth := responseAuth
	invalidAuth[0] ^= 0xFF
	assert.ErrorIs(t, VerifyResponseAuthenticator(2, 123, 26, requestAuth, attributes, invalidAuth, sharedSecret), ErrAuthenticatorMismatch)

	assert.ErrorIs(t, VerifyResponseAuthenticator(2, 123, 26, requestAuth, attributes, responseAuth, []byte("wrongsecret")), ErrAuthenticatorMismatch)
}

func TestAuthenticatorString(t *testing.T) {
	auth := Authenticator{0xde, 0xad, 0xbe, 0xef}
	assert.Equal(t, "deadbeef000000000000000000000000", auth.String())
}
