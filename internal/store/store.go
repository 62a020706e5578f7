// Package store persists the relay's snapshot between restarts as
// zstd-compressed canonical CBOR.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/benbeisheim/chesslink/internal/model"
)

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Save atomically replaces the state file with snap.
func (s *Store) Save(snap model.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming state file to %s: %w", s.path, err)
	}

	success = true
	return nil
}

// Load reads the state file. A missing file yields an error satisfying
// errors.Is(err, fs.ErrNotExist).
func (s *Store) Load() (model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap, err := Decode(data)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%s: %w", s.path, err)
	}
	return snap, nil
}
