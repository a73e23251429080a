package embedding

import (
	"context"
	"strings"
	"sync"
)

// CachingEmbedder wraps an Embedder with a bounded FIFO cache. Entries are
// keyed by a truncated, lowercased prefix of the source text: catalog
// descriptions that share a long common prefix embed to near-identical
// vectors, so the prefix is a cheap stable key.
type CachingEmbedder struct {
	inner     Embedder
	prefixLen int
	maxSize   int

	mu    sync.Mutex
	cache map[string][]float32
	order []string
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	PrefixLen int // Default: 256
	MaxSize   int // Default: 2000
}

// NewCachingEmbedder wraps inner with a FIFO prefix cache.
func NewCachingEmbedder(inner Embedder, cfg CacheConfig) *CachingEmbedder {
	if cfg.PrefixLen <= 0 {
		cfg.PrefixLen = 256
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 2000
	}

	return &CachingEmbedder{
		inner:     inner,
		prefixLen: cfg.PrefixLen,
		maxSize:   cfg.MaxSize,
		cache:     make(map[string][]float32),
	}
}

// Embed returns embeddings for texts, serving cached entries where possible
// and embedding only the misses.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := c.get(c.key(text)); ok {
			results[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embedded, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vec := range embedded {
		i := missIdx[j]
		results[i] = vec
		if vec != nil {
			c.put(c.key(texts[i]), vec)
		}
	}

	return results, nil
}

// EmbedSingle embeds one text through the cache.
func (c *CachingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}

	c.put(key, vec)
	return vec, nil
}

// Model returns the inner model name.
func (c *CachingEmbedder) Model() string {
	return c.inner.Model()
}

// Dimension returns the inner embedding dimension.
func (c *CachingEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// Len returns the number of cached entries.
func (c *CachingEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *CachingEmbedder) key(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) > c.prefixLen {
		text = text[:c.prefixLen]
	}
	return text
}

func (c *CachingEmbedder) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.cache[key]
	return vec, ok
}

func (c *CachingEmbedder) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache[key]; ok {
		return
	}

	// FIFO eviction at capacity.
	if len(c.cache) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}

	c.cache[key] = vec
	c.order = append(c.order, key)
}

var _ Embedder = (*CachingEmbedder)(nil)
