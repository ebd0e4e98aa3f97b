package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigreer/diskmap/internal/inventory"
)

// ErrNoSnapshot is returned by Load when no snapshot has been saved yet
var ErrNoSnapshot = errors.New("no snapshot saved")

// Store keeps a snapshot in a single file
type Store struct {
	path  string
	codec Codec
}

// NewStore creates a store writing path with codec
func NewStore(path string, codec Codec) *Store {
	return &Store{path: path, codec: codec}
}

// Path returns the snapshot file path
func (s *Store) Path() string {
	return s.path
}

// Save replaces the snapshot file with inv. An inventory that fails
// Validate is refused and the previous snapshot is kept.
func (s *Store) Save(inv *inventory.Inventory) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}

	data, err := Snapshot(inv, s.codec)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file
func (s *Store) Load() (*inventory.Inventory, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Restore(data, s.codec)
}

// Close is a no-op; it lets Store share an interface with the database backend
func (s *Store) Close() error {
	return nil
}
