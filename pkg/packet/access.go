package packet

import (
	"errors"
	"fmt"

	"github.com/vitalvas/hdverifier/pkg/crypto"
	"github.com/vitalvas/hdverifier/pkg/dictionary"
)

// NewAccessRequest builds an Access-Request carrying User-Name and an
// obscured User-Password. A fresh random authenticator is generated on
// every call, so a retry must build a new request.
//
// The username is sent as raw UTF-8 and is rejected with ErrEncoding above
// 253 bytes. Passwords above 128 bytes are rejected with ErrEncoding.
// dict may be nil, in which case dictionary.Default is used.
func NewAccessRequest(identifier uint8, username, password string, secret []byte, dict *dictionary.Dictionary) (*Packet, error) {
	if dict == nil {
		dict = dictionary.Default()
	}

	userNameAttr, err := dict.LookupByName(dictionary.UserName)
	if err != nil {
		return nil, err
	}

	userPasswordAttr, err := dict.LookupByName(dictionary.UserPassword)
	if err != nil {
		return nil, err
	}

	authenticator, err := crypto.GenerateRequestAuthenticator()
	if err != nil {
		return nil, err
	}

	pkt := New(CodeAccessRequest, identifier)
	pkt.Authenticator = authenticator

	nameAttr, err := NewAttribute(userNameAttr.Code(), []byte(username))
	if err != nil {
		return nil, fmt.Errorf("User-Name: %w", err)
	}
	pkt.AddAttribute(nameAttr)

	obscured, err := crypto.EncryptUserPassword([]byte(password), secret, authenticator)
	if err != nil {
		return nil, fmt.Errorf("%w: User-Password: %w", ErrEncoding, err)
	}

	passwordAttr, err := NewAttribute(userPasswordAttr.Code(), obscured)
	if err != nil {
		return nil, fmt.Errorf("User-Password: %w", err)
	}
	pkt.AddAttribute(passwordAttr)

	return pkt, nil
}

// DecodeResponse parses a reply to request and verifies it.
//
// A reply carrying a different identifier yields ErrIdentifierMismatch; the
// caller should discard it and keep waiting. A reply whose Response
// Authenticator does not verify yields ErrAuthenticatorMismatch.
func DecodeResponse(data []byte, request *Packet, secret []byte) (*Packet, error) {
	resp, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if resp.Identifier != request.Identifier {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrIdentifierMismatch, request.Identifier, resp.Identifier)
	}

	if err := crypto.VerifyResponseAuthenticator(byte(resp.Code), resp.Identifier, resp.Length,
		request.Authenticator, data[PacketHeaderLength:resp.Length], resp.Authenticator, secret); err != nil {
		return nil, fmt.Errorf("%w: %s for ID %d: %w", ErrAuthenticatorMismatch, resp.Code, resp.Identifier, err)
	}

	return resp, nil
}

// MatchesRequest reports whether data looks like a reply to request, checking
// only the header. Used to discard stray datagrams without a full decode.
func MatchesRequest(data []byte, request *Packet) bool {
	return len(data) >= MinPacketLength && data[1] == request.Identifier
}

// UserName returns the User-Name value of the packet.
func (p *Packet) UserName() (string, bool) {
	attr, ok := p.GetAttribute(dictionary.Default().MustCode(dictionary.UserName))
	if !ok {
		return "", false
	}
	return string(attr.Value), true
}

// UserPassword returns the de-obscured User-Password of a request packet.
func (p *Packet) UserPassword(secret []byte) (string, error) {
	attr, ok := p.GetAttribute(dictionary.Default().MustCode(dictionary.UserPassword))
	if !ok {
		return "", errors.New("no User-Password attribute")
	}

	plain, err := crypto.DecryptUserPassword(attr.Value, secret, p.Authenticator)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// NewResponse builds a signed reply to request. It is what a RADIUS server
// sends back and is used to exercise the client side.
func NewResponse(request *Packet, code Code, secret []byte, attrs ...*Attribute) ([]byte, error) {
	resp := New(code, request.Identifier)
	for _, attr := range attrs {
		resp.AddAttribute(attr)
	}

	data, err := resp.Encode()
	if err != nil {
		return nil, err
	}

	auth := crypto.CalculateResponseAuthenticator(byte(code), resp.Identifier, resp.Length,
		request.Authenticator, data[PacketHeaderLength:], secret)
	copy(data[4:20], auth[:])

	return data, nil
}
