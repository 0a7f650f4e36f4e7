// Package storage provides object-store access for Nimbus sources.
// Paths are fully-qualified "scheme://bucket/key" URLs; backends resolve
// them against S3-compatible services or a local directory tree.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/ajitpratap0/nimbus/pkg/errors"
)

// ObjectStore abstracts existence probes and content reads over
// fully-qualified object paths.
type ObjectStore interface {
	// Exists reports whether the object at path exists
	Exists(ctx context.Context, path string) (bool, error)

	// Open returns a reader for the object content.
	// The caller is responsible for closing the reader.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// SplitPath splits "scheme://bucket/key" into its bucket and key parts
func SplitPath(path string) (bucket, key string, err error) {
	_, rest, found := strings.Cut(path, "://")
	if !found {
		return "", "", errors.Newf(errors.ErrorTypeData,
			"object path %q has no scheme", path)
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", errors.Newf(errors.ErrorTypeData,
			"object path %q has no bucket/key structure", path)
	}
	return bucket, key, nil
}
