package packet

import (
	"fmt"
)

// Attribute represents a RADIUS attribute
type Attribute struct {
	Type   uint8
	Length uint8
	Value  []byte
}

// NewAttribute creates a new RADIUS attribute.
// Returns ErrEncoding if value does not fit into a single attribute.
func NewAttribute(attrType uint8, value []byte) (*Attribute, error) {
	if len(value) > MaxAttributeValueLength {
		return nil, fmt.Errorf("%w: attribute %d value is %d bytes, max %d",
			ErrEncoding, attrType, len(value), MaxAttributeValueLength)
	}

	return &Attribute{
		Type:   attrType,
		Length: uint8(len(value) + AttributeHeaderLength),
		Value:  value,
	}, nil
}

// String returns a string representation of the attribute
func (a *Attribute) String() string {
	return fmt.Sprintf("Type=%d, Length=%d, Value=%x", a.Type, a.Length, a.Value)
}
