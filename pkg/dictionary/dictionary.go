package dictionary

import (
	"errors"
	"fmt"
)

// ErrUnknownAttribute is returned when a lookup finds no definition.
var ErrUnknownAttribute = errors.New("unknown attribute")

// Dictionary is an immutable attribute table with lookup by name and by code.
// It is never modified after New returns and may be shared between goroutines.
type Dictionary struct {
	byID   map[uint32]*AttributeDefinition
	byName map[string]*AttributeDefinition
}

// New builds a dictionary from copies of attrs, so later changes to attrs do
// not reach it. Returns an error on duplicate names or codes, or codes outside 1..255.
func New(attrs []*AttributeDefinition) (*Dictionary, error) {
	d := &Dictionary{
		byID:   make(map[uint32]*AttributeDefinition, len(attrs)),
		byName: make(map[string]*AttributeDefinition, len(attrs)),
	}

	for _, attr := range attrs {
		if attr == nil {
			return nil, fmt.Errorf("nil attribute definition")
		}

		if attr.ID < 1 || attr.ID > 255 {
			return nil, fmt.Errorf("attribute %q: code %d out of range 1..255", attr.Name, attr.ID)
		}

		if attr.Name == "" {
			return nil, fmt.Errorf("attribute %d: empty name", attr.ID)
		}

		if _, exists := d.byName[attr.Name]; exists {
			return nil, fmt.Errorf("duplicate attribute name %q", attr.Name)
		}

		if existing, exists := d.byID[attr.ID]; exists {
			return nil, fmt.Errorf("duplicate attribute code %d: %q and %q", attr.ID, existing.Name, attr.Name)
		}

		def := *attr
		d.byID[def.ID] = &def
		d.byName[def.Name] = &def
	}

	return d, nil
}

// LookupByName finds an attribute by name. The result is a copy.
func (d *Dictionary) LookupByName(name string) (*AttributeDefinition, error) {
	attr, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	def := *attr
	return &def, nil
}

// LookupByCode finds an attribute by its on-wire type code. The result is a copy.
func (d *Dictionary) LookupByCode(code uint8) (*AttributeDefinition, error) {
	attr, ok := d.byID[uint32(code)]
	if !ok {
		return nil, fmt.Errorf("%w: code %d", ErrUnknownAttribute, code)
	}
	def := *attr
	return &def, nil
}

// MustCode returns the code of a known attribute and panics otherwise.
// Only meant for names from the built-in table.
func (d *Dictionary) MustCode(name string) uint8 {
	attr, err := d.LookupByName(name)
	if err != nil {
		panic(err)
	}
	return attr.Code()
}

// Len returns the number of definitions.
func (d *Dictionary) Len() int {
	return len(d.byID)
}
