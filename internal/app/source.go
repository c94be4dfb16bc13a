package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/justyntemme/stockpile/internal/store"
)

// ManifestSource delivers the manifest document. Transport is up to the
// implementation; the session only needs a stream.
type ManifestSource interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the document, and is the key of its cached copy.
	Name() string
}

// FileSource reads a manifest from a local file
type FileSource struct {
	Path string
	// Key overrides Name, so a local mirror can share the cache entry of
	// the URL it was downloaded from.
	Key string
}

func (f FileSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(f.Path)
}

func (f FileSource) Name() string {
	if f.Key != "" {
		return f.Key
	}
	return f.Path
}

// CacheSource serves the last cached copy of a manifest from the store
type CacheSource struct {
	DB  *store.DB
	URL string
}

func (c CacheSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cached, err := c.DB.LoadManifest(c.URL)
	if err != nil {
		return nil, fmt.Errorf("cached manifest %s: %w", c.URL, err)
	}
	return io.NopCloser(bytes.NewReader(cached.Content)), nil
}

func (c CacheSource) Name() string { return c.URL }
