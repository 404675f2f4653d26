package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalStorage archives report snapshots on the local filesystem. Used when
// no Azure storage account is configured.
type LocalStorage struct {
	dir string
}

var _ StorageInterface = (*LocalStorage)(nil)

// NewLocalStorage creates a directory-backed archive
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// Store writes a snapshot file
func (s *LocalStorage) Store(filename string, data []byte) error {
	if err := os.WriteFile(s.path(filename), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	logrus.Infof("Archived %s in %s", filename, s.dir)
	return nil
}

// Retrieve reads a snapshot file
func (s *LocalStorage) Retrieve(filename string) ([]byte, error) {
	data, err := os.ReadFile(s.path(filename))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return data, nil
}

// List returns snapshot names under a prefix
func (s *LocalStorage) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if prefix == "" || strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Delete removes a snapshot file
func (s *LocalStorage) Delete(filename string) error {
	if err := os.Remove(s.path(filename)); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	return nil
}
