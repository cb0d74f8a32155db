package testutil

import (
	"fonttrack/internal/encryption"
)

// NewTestEncryptor creates a header-framing encryptor for testing.
func NewTestEncryptor() *encryption.TestEncryptor {
	return encryption.NewTestEncryptor()
}
