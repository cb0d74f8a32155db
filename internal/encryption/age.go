package encryption

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"fonttrack/internal/config"
	"fonttrack/internal/ft"
)

// ErrWrongPassphrase is returned by Unlock when the passphrase does not open
// the private key.
var ErrWrongPassphrase = errors.New("wrong passphrase for the snapshot mirror key")

// keyComment heads both key files. age skips comment lines when parsing.
const keyComment = "# fonttrack snapshot mirror key\n"

// AgeEncryptor seals mirrored snapshot documents to an X25519 key. Mirroring
// only reads the public key, so scheduled runs never need the passphrase.
// The private key is sealed with the passphrase and opened by `snapshot
// restore`.
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ ft.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor returns an encryptor using the key files named in cfg.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup creates the mirror key pair. It refuses to run while either key file
// exists, since snapshots already mirrored would no longer decrypt. If
// writing either file fails, both are removed again.
func (e *AgeEncryptor) Setup(passphrase string) (err error) {
	if passphrase == "" {
		return errors.New("passphrase must not be empty")
	}
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, statErr := os.Stat(p); statErr == nil {
			return fmt.Errorf("key file %s already exists; remove both key files to generate new keys", p)
		}
		if mkErr := os.MkdirAll(filepath.Dir(p), 0700); mkErr != nil {
			return fmt.Errorf("creating key directory: %w", mkErr)
		}
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}
	recipient := identity.Recipient().String()

	defer func() {
		if err != nil {
			os.Remove(e.publicKeyPath)
			os.Remove(e.privateKeyPath)
		}
	}()

	if err := os.WriteFile(e.publicKeyPath, []byte(keyComment+recipient+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	plain := keyComment + "# public key: " + recipient + "\n" + identity.String() + "\n"
	return sealPrivateKey(e.privateKeyPath, plain, passphrase)
}

func sealPrivateKey(path, plain, passphrase string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating private key file: %w", err)
	}
	defer f.Close()

	sealer, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("preparing passphrase: %w", err)
	}
	w, err := age.Encrypt(f, sealer)
	if err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	if _, err := io.WriteString(w, plain); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	return f.Sync()
}

// Encrypt seals the snapshot document read from r to the public key.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.recipient()
	if err != nil {
		return err
	}
	sealed, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if _, err := io.Copy(sealed, r); err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := sealed.Close(); err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return nil
}

// Unlock opens the private key. A wrong passphrase returns
// ErrWrongPassphrase before any snapshot is fetched.
func (e *AgeEncryptor) Unlock(passphrase string) (ft.DecryptionContext, error) {
	f, err := os.Open(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}
	defer f.Close()

	opener, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("preparing passphrase: %w", err)
	}
	plain, err := age.Decrypt(f, opener)
	if errors.Is(err, age.ErrIncorrectIdentity) {
		return nil, ErrWrongPassphrase
	}
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}

	identities, err := age.ParseIdentities(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return &AgeDecryptionContext{identities: identities}, nil
}

// IsConfigured reports whether both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func (e *AgeEncryptor) recipient() (age.Recipient, error) {
	data, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing public key %s: %w", e.publicKeyPath, err)
	}
	return recipients[0], nil
}

// AgeDecryptionContext holds the opened private key for one restore.
type AgeDecryptionContext struct {
	identities []age.Identity
}

var _ ft.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt opens a mirrored snapshot read from r and writes the document to w.
// A plain JSON document, as mirrored with encryption disabled, is reported
// as such rather than as a corrupt age file.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(1); len(head) == 1 && head[0] == '{' {
		return errors.New("mirrored snapshot is not encrypted; set encryption type to none to restore it")
	}
	plain, err := age.Decrypt(br, c.identities...)
	if err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	return nil
}
