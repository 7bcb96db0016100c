package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// BlobStore keeps the raw uploaded documents. Persisting the original bytes
// is best effort: a failed write never fails the upload, it only leaves a
// warning in the parse log.
type BlobStore interface {
	Put(relPath string, data []byte) error
	Get(relPath string) ([]byte, error)
}

// FilesystemStore writes blobs under a single root directory, creating the
// hash-prefix subdirectories on demand.
type FilesystemStore struct {
	root   string
	logger *slog.Logger
}

func NewFilesystemStore(root string, logger *slog.Logger) *FilesystemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilesystemStore{root: root, logger: logger}
}

func (s *FilesystemStore) Put(relPath string, data []byte) error {
	full := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	s.logger.Debug("stored blob", "path", relPath, "bytes", len(data))
	return nil
}

func (s *FilesystemStore) Get(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(relPath)))
}
