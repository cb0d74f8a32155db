package ft

import (
	"errors"
	"io"
)

// Vault stores copies of a host's accepted snapshot outside the machine.
// All operations stream through io.Reader/io.Writer.
type Vault interface {
	// PutSnapshot stores the snapshot document for a host.
	// size is the number of bytes that will be read from r.
	// version is stored alongside the document for consistency checks.
	PutSnapshot(hostID string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the stored snapshot document for a host to w.
	GetSnapshot(hostID string, w io.Writer) error

	// GetSnapshotVersion returns the stored version for a host,
	// or 0 if nothing has been stored.
	GetSnapshotVersion(hostID string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}

// ErrSnapshotNotFound is returned by Vault.GetSnapshot when no snapshot has
// been stored for the host.
var ErrSnapshotNotFound = errors.New("snapshot not found")
