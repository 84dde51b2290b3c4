package dictionary

// DataType represents the data type of an attribute
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeOctets  DataType = "octets"
	DataTypeInteger DataType = "integer"
	DataTypeIPAddr  DataType = "ipaddr"
)

// EncryptionType represents the encryption type of an attribute
type EncryptionType string

const (
	EncryptionNone         EncryptionType = ""
	EncryptionUserPassword EncryptionType = "user-password"
)

// AttributeDefinition defines a RADIUS attribute
type AttributeDefinition struct {
	ID          uint32         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	DataType    DataType       `yaml:"data_type" json:"data_type"`
	Encryption  EncryptionType `yaml:"encryption,omitempty" json:"encryption,omitempty"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
}

// Code returns the on-wire attribute type.
func (a *AttributeDefinition) Code() uint8 {
	return uint8(a.ID)
}
