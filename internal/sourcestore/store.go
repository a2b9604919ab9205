// Package sourcestore fetches the audio and artwork bytes an export needs
// from wherever the library actually lives: a local directory tree during
// development, or a MinIO bucket in a networked deployment. The
// ExportOrganizer only ever sees the SourceStore interface.
package sourcestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// SourceStore fetches a named asset (a relative audio file path, or an
// artwork key) as a stream plus its size.
type SourceStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Size(ctx context.Context, key string) (int64, error)
}

// LocalStore serves assets from a directory on the local filesystem.
type LocalStore struct {
	baseDir string
}

// NewLocalStore roots a LocalStore at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(s.path(key))
}

func (s *LocalStore) Size(_ context.Context, key string) (int64, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
