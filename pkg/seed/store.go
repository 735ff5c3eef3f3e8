package seed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the seed file, the single shared mutable resource of the service.
//
// Writers replace the file atomically: the new content is written to a temp file
// in the same directory, synced, and renamed over the target. Readers therefore
// observe either the previous seed or the new one, never a partial write, even
// across processes. Within a process an RWMutex additionally orders writers
// against readers.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the canonical seed location.
func (s *FileStore) Path() string { return s.path }

// Save atomically replaces the stored seed.
func (s *FileStore) Save(seed Seed) error {
	if _, err := Validate(seed.String()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Join(ErrStoreWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Join(ErrStoreWrite, err)
	}
	tmpPath := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Join(ErrStoreWrite, err)
	}

	if _, err := tmp.WriteString(seed.String()); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Join(ErrStoreWrite, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Join(ErrStoreWrite, err)
	}
	return nil
}

// Load reads the stored seed and passes it through Validate again.
// Trailing whitespace in the file is tolerated.
func (s *FileStore) Load() (Seed, error) {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSeedNotFound, s.path)
		}
		return "", fmt.Errorf("read seed: %w", err)
	}
	return Validate(string(data))
}

// Exists reports whether a seed file is present. It does not validate it.
func (s *FileStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := os.Stat(s.path)
	return err == nil
}
