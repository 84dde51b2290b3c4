package packet

import (
	"encoding/binary"
	"fmt"
)

// Encode converts a Packet into its binary representation per RFC 2865 Section 3
func (p *Packet) Encode() ([]byte, error) {
	if err := p.IsValid(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	data := make([]byte, p.Length)

	data[0] = byte(p.Code)
	data[1] = p.Identifier
	binary.BigEndian.PutUint16(data[2:4], p.Length)
	copy(data[4:20], p.Authenticator[:])

	offset := PacketHeaderLength
	for _, attr := range p.Attributes {
		data[offset] = attr.Type
		data[offset+1] = attr.Length
		copy(data[offset+2:offset+int(attr.Length)], attr.Value)
		offset += int(attr.Length)
	}

	return data, nil
}

// Decode parses binary data into a Packet per RFC 2865 Section 3.
// The length field must match len(data) exactly.
func Decode(data []byte) (*Packet, error) {
	if len(data) < MinPacketLength {
		return nil, fmt.Errorf("%w: too short: %d bytes", ErrMalformedPacket, len(data))
	}

	if len(data) > MaxPacketLength {
		return nil, fmt.Errorf("%w: too long: %d bytes", ErrMalformedPacket, len(data))
	}

	length := binary.BigEndian.Uint16(data[2:4])
	if int(length) != len(data) {
		return nil, fmt.Errorf("%w: length mismatch: header says %d, got %d", ErrMalformedPacket, length, len(data))
	}

	pkt := &Packet{
		Code:       Code(data[0]),
		Identifier: data[1],
		Length:     length,
		Attributes: make([]*Attribute, 0),
	}
	copy(pkt.Authenticator[:], data[4:20])

	offset := PacketHeaderLength
	for offset < int(length) {
		if offset+AttributeHeaderLength > int(length) {
			return nil, fmt.Errorf("%w: incomplete attribute header at offset %d", ErrMalformedPacket, offset)
		}

		attrType := data[offset]
		attrLength := data[offset+1]

		if attrLength < AttributeHeaderLength {
			return nil, fmt.Errorf("%w: invalid attribute length %d at offset %d", ErrMalformedPacket, attrLength, offset)
		}

		if offset+int(attrLength) > int(length) {
			return nil, fmt.Errorf("%w: attribute extends beyond packet: offset %d, length %d, packet length %d",
				ErrMalformedPacket, offset, attrLength, length)
		}

		value := make([]byte, int(attrLength)-AttributeHeaderLength)
		copy(value, data[offset+2:offset+int(attrLength)])

		pkt.Attributes = append(pkt.Attributes, &Attribute{
			Type:   attrType,
			Length: attrLength,
			Value:  value,
		})
		offset += int(attrLength)
	}

	return pkt, nil
}
