// Package local provides a filesystem BlobStore for sources registered
// with plain paths or file:// URIs.
package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore reads source bytes from the local filesystem. An optional root
// confines reads to a directory tree.
type BlobStore struct {
	root string
}

// NewBlobStore creates a blob store. With a non-empty root, URIs resolving
// outside the root are rejected.
func NewBlobStore(root string) *BlobStore {
	return &BlobStore{root: root}
}

// Open returns a reader for the file behind the URI.
func (b *BlobStore) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path, err := b.resolve(uri)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("source %s: %w", uri, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening source %s: %w", uri, err)
	}
	return f, nil
}

// resolve turns a URI into an absolute filesystem path inside the root.
func (b *BlobStore) resolve(uri string) (string, error) {
	path := uri
	if strings.Contains(uri, "://") {
		u, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("parsing source uri %q: %w", uri, err)
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("unsupported source scheme %q: %w", u.Scheme, domain.ErrInvalidInput)
		}
		path = u.Path
	}

	path = filepath.Clean(path)
	if b.root == "" {
		return path, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving source path: %w", err)
	}
	rootAbs, err := filepath.Abs(b.root)
	if err != nil {
		return "", fmt.Errorf("resolving blob root: %w", err)
	}
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("source %s escapes blob root: %w", uri, domain.ErrInvalidInput)
	}
	return abs, nil
}
