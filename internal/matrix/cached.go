package matrix

import (
	"fmt"
	"path/filepath"

	"github.com/maypok86/otter"
)

// DefaultCacheSize is the number of matrices CachedReader keeps by default.
const DefaultCacheSize = 64

// CachedReader wraps a Reader so that a file referenced several times in one
// run (for example the same features for two modes) is parsed once.
// Matrices are shared between callers and must not be modified.
type CachedReader struct {
	next  Reader
	cache otter.Cache[string, *Matrix]
}

// NewCachedReader creates a caching reader holding up to size matrices.
func NewCachedReader(next Reader, size int) (*CachedReader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := otter.MustBuilder[string, *Matrix](size).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build matrix cache: %w", err)
	}
	return &CachedReader{next: next, cache: cache}, nil
}

func (c *CachedReader) Read(path string) (*Matrix, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	if m, ok := c.cache.Get(key); ok {
		return m, nil
	}

	m, err := c.next.Read(path)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, m)
	return m, nil
}

// Close releases the cache's background resources.
func (c *CachedReader) Close() {
	c.cache.Close()
}
