package packet

import (
	"fmt"

	"github.com/vitalvas/hdverifier/pkg/crypto"
)

// Packet represents a RADIUS packet as defined in RFC 2865
type Packet struct {
	Code          Code
	Identifier    uint8
	Length        uint16
	Authenticator crypto.Authenticator
	Attributes    []*Attribute
}

// New creates a new RADIUS packet with the specified code and identifier
func New(code Code, identifier uint8) *Packet {
	return &Packet{
		Code:       code,
		Identifier: identifier,
		Length:     PacketHeaderLength,
		Attributes: make([]*Attribute, 0),
	}
}

// AddAttribute adds an attribute to the packet
func (p *Packet) AddAttribute(attr *Attribute) {
	p.Attributes = append(p.Attributes, attr)
	p.Length += uint16(attr.Length)
}

// GetAttribute returns the first attribute with the specified type
func (p *Packet) GetAttribute(attrType uint8) (*Attribute, bool) {
	for _, attr := range p.Attributes {
		if attr.Type == attrType {
			return attr, true
		}
	}
	return nil, false
}

// IsValid performs basic validation of the packet
func (p *Packet) IsValid() error {
	if p.Length < MinPacketLength {
		return fmt.Errorf("packet too short: %d bytes", p.Length)
	}

	if p.Length > MaxPacketLength {
		return fmt.Errorf("packet too long: %d bytes", p.Length)
	}

	expectedLength := uint16(PacketHeaderLength)
	for _, attr := range p.Attributes {
		if int(attr.Length) != len(attr.Value)+AttributeHeaderLength {
			return fmt.Errorf("attribute %d length mismatch: header says %d, value is %d bytes", attr.Type, attr.Length, len(attr.Value))
		}
		expectedLength += uint16(attr.Length)
	}

	if p.Length != expectedLength {
		return fmt.Errorf("packet length mismatch: header says %d, calculated %d", p.Length, expectedLength)
	}

	return nil
}

// String returns a string representation of the packet.
// Attribute values are not included since they may carry credentials.
func (p *Packet) String() string {
	return fmt.Sprintf("Code=%s(%d), ID=%d, Length=%d, Attributes=%d",
		p.Code.String(), p.Code, p.Identifier, p.Length, len(p.Attributes))
}
