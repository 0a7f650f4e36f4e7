package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/nimbus/pkg/errors"
)

// LocalStore resolves object paths against a local directory tree:
// scheme://bucket/key maps to <root>/<bucket>/<key>. Used for development
// and tests.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local object store rooted at dir
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "local store root is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("cannot access local store root %s", dir))
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"local store root %s is not a directory", dir)
	}
	return &LocalStore{root: dir}, nil
}

// Exists implements ObjectStore
func (s *LocalStore) Exists(ctx context.Context, path string) (bool, error) {
	local, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(local); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeFile,
			fmt.Sprintf("failed to stat %s", local))
	}
	return true, nil
}

// Open implements ObjectStore
func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	local, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(local) //nolint:gosec // G304: path resolved under the configured root
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile,
			fmt.Sprintf("failed to open %s", local))
	}
	return f, nil
}

// resolve maps scheme://bucket/key under the store root
func (s *LocalStore) resolve(path string) (string, error) {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return "", err
	}
	local := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	// Keep resolution inside the root
	if rel, err := filepath.Rel(s.root, local); err != nil || rel == ".." ||
		len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return "", errors.Newf(errors.ErrorTypeData,
			"object path %q escapes the store root", path)
	}
	return local, nil
}
