package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

const fileExt = ".json"

// FileStore is a BlobStore keeping one file per owner in a directory. Writes
// go to a temp file that is renamed over the target, so a reader never sees a
// partial blob.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(ownerID string) string {
	return filepath.Join(s.dir, ownerID+fileExt)
}

// Get returns the blob stored for ownerID, or nil if there is none.
func (s *FileStore) Get(ctx context.Context, ownerID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(ownerID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read blob for %s", ownerID)
	}
	return data, nil
}

// Set atomically replaces the blob for ownerID.
func (s *FileStore) Set(ctx context.Context, ownerID string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateOwnerID(ownerID); err != nil {
		return err
	}
	if len(blob) == 0 {
		return errors.Errorf("refusing to store empty blob for %s", ownerID)
	}

	if err := atomic.WriteFile(s.path(ownerID), bytes.NewReader(blob)); err != nil {
		return errors.Wrapf(err, "failed to write blob for %s", ownerID)
	}
	return os.Chmod(s.path(ownerID), 0600)
}

// ReadBlobFile reads a single exported blob from path.
func ReadBlobFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}

// WriteBlobFile atomically writes a single blob to path with owner-only
// permissions.
func WriteBlobFile(path string, blob []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(blob)); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return os.Chmod(path, 0600)
}
