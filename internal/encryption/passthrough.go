package encryption

import (
	"bytes"
	"fmt"
	"io"

	"fonttrack/internal/ft"
)

// PlainEncryptor stores mirrored snapshots unencrypted. It backs the "none"
// encryption type.
type PlainEncryptor struct{}

var _ ft.Encryptor = PlainEncryptor{}

func (PlainEncryptor) Setup(string) error {
	return fmt.Errorf("encryption type is none: nothing to set up")
}

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}

func (PlainEncryptor) Unlock(string) (ft.DecryptionContext, error) {
	return plainDecryption{}, nil
}

func (PlainEncryptor) IsConfigured() bool {
	return true
}

type plainDecryption struct{}

func (plainDecryption) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}

// markerHeader is prepended by TestEncryptor so ciphertext is visibly
// different from the document while staying deterministic.
var markerHeader = []byte("FTENC\x00\x00\x01")

// TestEncryptor frames data with a fixed header instead of encrypting it.
// Unlock accepts any passphrase except "wrong", which lets restore paths
// exercise the bad-passphrase branch without real keys.
type TestEncryptor struct {
	setupCalled bool
}

var _ ft.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(markerHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (ft.DecryptionContext, error) {
	if passphrase == "wrong" {
		return nil, fmt.Errorf("decrypting private key: incorrect passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ ft.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(markerHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, markerHeader) {
		return fmt.Errorf("invalid header: data was not written by TestEncryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
