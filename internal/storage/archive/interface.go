// Package archive stores opaque documents by path on a local directory, an
// S3-compatible bucket, or in memory.
package archive

import (
	"context"
	"fmt"

	"github.com/newthinker/folio/internal/core"
)

// Storage defines the interface for document storage backends. Read and
// Delete of a missing path return an error matching core.ErrNotFound.
type Storage interface {
	// Write stores data at the given path, replacing any previous content
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

func notFound(path string) error {
	return core.WrapError(core.ErrNotFound, fmt.Errorf("path %s", path))
}

func storageFailed(op, path string, err error) error {
	return core.WrapError(core.ErrStorageFailed, fmt.Errorf("%s %s: %w", op, path, err))
}
