package embedder

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/aiyo-oss/aiyo/internal/memory"
)

// Cached memoizes another embedder. Each turn embeds the same utterance for
// dedup, search and listing, so repeated text skips the model call.
type Cached struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// NewCached wraps inner with a cache holding up to size vectors.
func NewCached(inner memory.Embedder, size int64) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.([]float32), nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, 1)
	return vec, nil
}

// Wait blocks until pending cache writes are visible.
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
