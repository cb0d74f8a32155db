package vault

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fonttrack/internal/ft"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// Snapshots are kept as files under the root directory:
//
//	<root>/
//	  snapshots/
//	    <hostID>          (snapshot document, encrypted when keys are configured)
//	    <hostID>.version  (sync operation id of the stored document)
type FileSystemVault struct {
	name         string
	root         string
	snapshotsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotsDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	return &FileSystemVault{
		name:         name,
		root:         root,
		snapshotsDir: snapshotsDir,
	}, nil
}

// Name returns the configured vault name.
func (v *FileSystemVault) Name() string {
	return v.name
}

// PutSnapshot stores the snapshot document for a host along with a version marker.
// The document is written before the version so a reader never sees a version
// newer than the document it describes.
func (v *FileSystemVault) PutSnapshot(hostID string, r io.Reader, size int64, version int64) error {
	destPath, err := v.snapshotPath(hostID)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(destPath, r, size); err != nil {
		return err
	}

	versionData := strconv.FormatInt(version, 10)
	return writeFileAtomic(destPath+".version", strings.NewReader(versionData), int64(len(versionData)))
}

// GetSnapshotVersion returns the stored version for a host.
// Returns 0 if no version file exists.
func (v *FileSystemVault) GetSnapshotVersion(hostID string) (int64, error) {
	path, err := v.snapshotPath(hostID)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path + ".version")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetSnapshot writes the stored snapshot document for a host to w.
func (v *FileSystemVault) GetSnapshot(hostID string, w io.Writer) error {
	path, err := v.snapshotPath(hostID)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("host %s: %w", hostID, ft.ErrSnapshotNotFound)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.snapshotsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// snapshotPath rejects host ids that would escape the snapshots directory.
func (v *FileSystemVault) snapshotPath(hostID string) (string, error) {
	if hostID == "" || hostID == "." || hostID == ".." || strings.ContainsAny(hostID, `/\`) {
		return "", fmt.Errorf("invalid host id %q", hostID)
	}
	return filepath.Join(v.snapshotsDir, hostID), nil
}

// writeFileAtomic writes data from r to destPath through a temp file in the
// same directory and a rename.
func writeFileAtomic(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ ft.Vault = (*FileSystemVault)(nil)
