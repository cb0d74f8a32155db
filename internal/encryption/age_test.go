package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fonttrack/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "fonttrack.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "fonttrack.key"),
	}
	return NewAgeEncryptor(cfg)
}

func TestAgeEncryptor_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
}

func TestAgeEncryptor_Setup_IsConfigured(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	if err := e.Setup("test-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			passphrase := "test-passphrase"
			e := newTestAgeEncryptor(t)
			if err := e.Setup(passphrase); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			// Encrypt
			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			// Encrypted output should differ from plaintext
			if len(tt.input) > 0 && bytes.Equal(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output is identical to plaintext")
			}

			// Decrypt
			ctx, err := e.Unlock(passphrase)
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}

			var decrypted bytes.Buffer
			if err := ctx.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("correct-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	_, err := e.Unlock("wrong-passphrase")
	if !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock() with wrong passphrase error = %v, want ErrWrongPassphrase", err)
	}
}

func TestAgeEncryptor_EncryptBeforeSetup(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	var buf bytes.Buffer
	err := e.Encrypt(bytes.NewReader([]byte("data")), &buf)
	if err == nil {
		t.Error("Encrypt() before Setup should return error")
	}
}

func TestAgeEncryptor_UnlockBeforeSetup(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	_, err := e.Unlock("passphrase")
	if err == nil {
		t.Error("Unlock() before Setup should return error")
	}
}

func TestAgeEncryptor_SetupRefusesOverwrite(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("first"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := e.Setup("second"); err == nil {
		t.Fatal("second Setup() should refuse to replace existing keys")
	}

	// The original passphrase still unlocks the original key.
	if _, err := e.Unlock("first"); err != nil {
		t.Errorf("Unlock() with original passphrase error = %v", err)
	}
}

func TestAgeEncryptor_SetupEmptyPassphrase(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup(""); err == nil {
		t.Error("Setup(\"\") should return error")
	}
	if e.IsConfigured() {
		t.Error("IsConfigured() = true after rejected Setup")
	}
}

func TestAgeEncryptor_KeyFilesCarryComment(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	pub, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		t.Fatalf("reading public key: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(pub)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "#") || !strings.HasPrefix(lines[1], "age1") {
		t.Errorf("public key file = %q", pub)
	}

	// The commented file still parses for Encrypt.
	var out bytes.Buffer
	if err := e.Encrypt(strings.NewReader("{}"), &out); err != nil {
		t.Errorf("Encrypt() error = %v", err)
	}
}

func TestAgeEncryptor_SetupRefusesHalfConfigured(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := os.MkdirAll(filepath.Dir(e.publicKeyPath), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(e.publicKeyPath, []byte("age1stale\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := e.Setup("passphrase"); err == nil {
		t.Fatal("Setup() should refuse while a key file exists")
	}
	data, _ := os.ReadFile(e.publicKeyPath)
	if string(data) != "age1stale\n" {
		t.Errorf("existing public key was modified: %q", data)
	}
	if _, err := os.Stat(e.privateKeyPath); err == nil {
		t.Error("private key written by refused Setup")
	}
}

func TestAgeDecryptionContext_PlainSnapshot(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	dc, err := e.Unlock("passphrase")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	var out bytes.Buffer
	err = dc.Decrypt(strings.NewReader(`{"/a.ttf":{}}`), &out)
	if err == nil || !strings.Contains(err.Error(), "not encrypted") {
		t.Errorf("Decrypt(plain JSON) error = %v, want not encrypted", err)
	}
	if out.Len() != 0 {
		t.Errorf("Decrypt wrote %d bytes for a rejected document", out.Len())
	}
}
