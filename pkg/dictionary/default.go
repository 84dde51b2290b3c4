package dictionary

import "sync"

// Attribute names used by the Access-Request exchange.
const (
	UserName     = "User-Name"
	UserPassword = "User-Password"
	CHAPPassword = "CHAP-Password"
)

// standardAttributes is the built-in RFC 2865 subset needed to verify a user.
var standardAttributes = []*AttributeDefinition{
	{ID: 1, Name: UserName, DataType: DataTypeString, Description: "Name of the user to be authenticated"},
	{ID: 2, Name: UserPassword, DataType: DataTypeString, Encryption: EncryptionUserPassword, Description: "Password of the user, obscured with the shared secret"},
	{ID: 3, Name: CHAPPassword, DataType: DataTypeOctets, Description: "CHAP identifier and response"},
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
)

// Default returns the process-wide dictionary built from the RFC 2865 subset
// needed to verify a user.
func Default() *Dictionary {
	defaultOnce.Do(func() {
		d, err := New(standardAttributes)
		if err != nil {
			panic("dictionary: invalid built-in table: " + err.Error())
		}
		defaultDict = d
	})
	return defaultDict
}
