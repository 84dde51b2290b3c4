package crypto

import (
	"crypto/md5"
	"errors"
	"fmt"
)

const (
	// PasswordBlockSize is the chunk size of the User-Password keystream.
	PasswordBlockSize = 16
	// MaxPasswordLength is the largest obscured User-Password value.
	MaxPasswordLength = 128
)

var (
	// ErrPasswordTooLong is returned for passwords above MaxPasswordLength bytes.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidPasswordLength is returned when an obscured value is not a
	// positive multiple of PasswordBlockSize or exceeds MaxPasswordLength.
	ErrInvalidPasswordLength = errors.New("invalid obscured password length")
)

// EncryptUserPassword obscures password per RFC 2865 Section 5.2.
//
// The password is padded with zeros to a multiple of 16 bytes. Each block is
// XORed with MD5(secret + previous ciphertext block), the request
// authenticator standing in for the block before the first one.
func EncryptUserPassword(password, secret []byte, authenticator Authenticator) ([]byte, error) {
	if len(password) > MaxPasswordLength {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPasswordTooLong, len(password), MaxPasswordLength)
	}

	size := (len(password) + PasswordBlockSize - 1) / PasswordBlockSize * PasswordBlockSize
	if size == 0 {
		size = PasswordBlockSize
	}

	out := make([]byte, size)
	copy(out, password)

	prev := authenticator[:]
	for offset := 0; offset < size; offset += PasswordBlockSize {
		key := passwordKey(secret, prev)
		block := out[offset : offset+PasswordBlockSize]
		for i := range block {
			block[i] ^= key[i]
		}
		prev = block
	}

	return out, nil
}

// DecryptUserPassword reverses EncryptUserPassword and strips the zero padding.
func DecryptUserPassword(obscured, secret []byte, authenticator Authenticator) ([]byte, error) {
	if len(obscured) == 0 || len(obscured)%PasswordBlockSize != 0 || len(obscured) > MaxPasswordLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPasswordLength, len(obscured))
	}

	out := make([]byte, len(obscured))

	prev := authenticator[:]
	for offset := 0; offset < len(obscured); offset += PasswordBlockSize {
		key := passwordKey(secret, prev)
		for i := 0; i < PasswordBlockSize; i++ {
			out[offset+i] = obscured[offset+i] ^ key[i]
		}
		prev = obscured[offset : offset+PasswordBlockSize]
	}

	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}

	return out[:end], nil
}

func passwordKey(secret, prev []byte) [md5.Size]byte {
	h := md5.New()
	h.Write(secret)
	h.Write(prev)

	var key [md5.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}
