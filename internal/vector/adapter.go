// Package vector provides the optional embedding-similarity retrieval path.
// Every failure mode degrades silently: an unavailable adapter reports
// IsAvailable false and returns empty results, signaling the orchestrator to
// fall back to the lexical index.
package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/medbill-ai/coding-engine/internal/embedding"
	"github.com/medbill-ai/coding-engine/internal/observability"
)

// Document is a unit of text to index.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Result is one similarity search hit.
type Result struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Filters narrows a search to matching metadata values.
type Filters struct {
	Categories []string
	Slots      []string
}

// Adapter defines the vector similarity search interface.
type Adapter interface {
	// Upsert adds or replaces documents in the index.
	Upsert(ctx context.Context, docs []Document) error

	// Search finds the topK nearest documents to the query text.
	Search(ctx context.Context, query string, topK int, filters Filters) ([]Result, error)

	// IsAvailable reports whether the adapter can serve searches.
	IsAvailable() bool

	// Close releases resources.
	Close() error
}

// MemoryIndex is an in-memory cosine-similarity index over embedded
// documents.
type MemoryIndex struct {
	logger   *observability.Logger
	embedder embedding.Embedder

	mu        sync.RWMutex
	vectors   map[string][]float32
	metadata  map[string]map[string]string
	available bool
}

// NewMemoryIndex creates a memory-backed vector index. A nil embedder yields
// a permanently unavailable index.
func NewMemoryIndex(logger *observability.Logger, embedder embedding.Embedder) *MemoryIndex {
	return &MemoryIndex{
		logger:    logger.WithComponent("vector"),
		embedder:  embedder,
		vectors:   make(map[string][]float32),
		metadata:  make(map[string]map[string]string),
		available: embedder != nil,
	}
}

// Upsert embeds and stores documents. Embedding failure marks the index
// unavailable rather than propagating the error.
func (m *MemoryIndex) Upsert(ctx context.Context, docs []Document) error {
	if m.embedder == nil || len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	embedded, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		m.logger.Warn().Err(err).Int("docs", len(docs)).Msg("Embedding failed, vector index unavailable")
		m.setAvailable(false)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, doc := range docs {
		if embedded[i] == nil {
			continue
		}
		m.vectors[doc.ID] = normalizeVector(embedded[i])
		m.metadata[doc.ID] = doc.Metadata
	}
	m.available = len(m.vectors) > 0

	return nil
}

// Search embeds the query and ranks stored documents by cosine similarity.
// Any failure returns an empty result set, never an error.
func (m *MemoryIndex) Search(ctx context.Context, query string, topK int, filters Filters) ([]Result, error) {
	if !m.IsAvailable() || topK <= 0 {
		return nil, nil
	}

	queryVec, err := m.embedder.EmbedSingle(ctx, query)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Query embedding failed, returning empty vector results")
		m.setAvailable(false)
		return nil, nil
	}
	queryVec = normalizeVector(queryVec)

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.vectors))
	for id, vec := range m.vectors {
		meta := m.metadata[id]
		if !matchesFilters(meta, filters) {
			continue
		}
		if len(vec) != len(queryVec) {
			continue
		}
		results = append(results, Result{
			ID:       id,
			Score:    dot(queryVec, vec),
			Metadata: meta,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// IsAvailable reports whether the index can serve searches.
func (m *MemoryIndex) IsAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available && len(m.vectors) > 0
}

// Close releases resources.
func (m *MemoryIndex) Close() error {
	return nil
}

func (m *MemoryIndex) setAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = v
}

// Unavailable is an Adapter that never serves results. Used when no
// embedding provider is configured.
type Unavailable struct{}

// Upsert discards documents.
func (Unavailable) Upsert(ctx context.Context, docs []Document) error { return nil }

// Search returns no results.
func (Unavailable) Search(ctx context.Context, query string, topK int, filters Filters) ([]Result, error) {
	return nil, nil
}

// IsAvailable reports false.
func (Unavailable) IsAvailable() bool { return false }

// Close is a no-op.
func (Unavailable) Close() error { return nil }

func matchesFilters(meta map[string]string, filters Filters) bool {
	if len(filters.Categories) > 0 && !containsValue(filters.Categories, meta["category"]) {
		return false
	}
	if len(filters.Slots) > 0 && !containsValue(filters.Slots, meta["slot"]) {
		return false
	}
	return true
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// dot computes the dot product of two normalized vectors, which equals
// cosine similarity.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	if sum > 1 {
		sum = 1
	} else if sum < -1 {
		sum = -1
	}
	return sum
}

func normalizeVector(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, x := range v {
		normalized[i] = float32(float64(x) / norm)
	}
	return normalized
}

var (
	_ Adapter = (*MemoryIndex)(nil)
	_ Adapter = Unavailable{}
)
