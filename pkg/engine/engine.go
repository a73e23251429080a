// Package engine wires the coding engine's components into a single
// embeddable facade: catalog, lexical index, optional vector index, LLM
// collaborators, query cache, and the suggestion orchestrator.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/medbill-ai/coding-engine/internal/ai"
	"github.com/medbill-ai/coding-engine/internal/cache"
	"github.com/medbill-ai/coding-engine/internal/catalog"
	"github.com/medbill-ai/coding-engine/internal/config"
	"github.com/medbill-ai/coding-engine/internal/embedding"
	"github.com/medbill-ai/coding-engine/internal/index"
	"github.com/medbill-ai/coding-engine/internal/observability"
	"github.com/medbill-ai/coding-engine/internal/suggest"
	"github.com/medbill-ai/coding-engine/internal/vector"
)

// Engine is the assembled coding engine. Construct with New, then serve
// queries via Process, SearchCodes, and GetCode. Reload swaps the catalog
// and derived indexes under the mutex; the cache and AI collaborators
// survive reloads.
type Engine struct {
	logger    *observability.Logger
	cfg       *config.Config
	cache     cache.Client
	extractor ai.ContextExtractor
	explainer ai.ExplanationGenerator

	mu           sync.RWMutex
	catalog      *catalog.Catalog
	orchestrator *suggest.Orchestrator
	vec          vector.Adapter
}

// New builds the engine from configuration. The catalog must load; every
// other external dependency (Redis, embedding provider, LLM) degrades to an
// in-process fallback when unavailable.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Engine, error) {
	extractor, explainer := newAICollaborators(cfg, logger)

	e := &Engine{
		logger:    logger,
		cfg:       cfg,
		cache:     newCacheClient(cfg, logger),
		extractor: extractor,
		explainer: explainer,
	}
	if err := e.rebuild(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// rebuild loads the catalog and reconstructs every derived component,
// swapping them in atomically.
func (e *Engine) rebuild(ctx context.Context) error {
	cat := catalog.New(e.logger, catalog.Config{Sources: e.cfg.Catalog.Sources})
	if err := cat.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	resolver := catalog.NewResolver(variantTableFromConfig(e.cfg.Catalog.TimeVariants))

	lexical := index.Build(suggest.CatalogDocuments(cat))
	e.logger.Info().
		Int("records", cat.Size()).
		Int("documents", lexical.Size()).
		Msg("Catalog indexed")

	vec := newVectorAdapter(ctx, e.cfg, e.logger, cat)

	orch := suggest.New(
		e.logger,
		cat,
		resolver,
		lexical,
		vec,
		e.extractor,
		e.explainer,
		e.cache,
		suggest.Config{
			RetrievalTopK:   e.cfg.Suggest.RetrievalTopK,
			MaxSuggestions:  e.cfg.Suggest.MaxSuggestions,
			ConfidenceFloor: e.cfg.Suggest.ConfidenceFloor,
			CacheTTL:        e.cfg.Suggest.CacheTTL,
		},
	)

	e.mu.Lock()
	old := e.vec
	e.catalog = cat
	e.orchestrator = orch
	e.vec = vec
	e.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Stale vector adapter close failed")
		}
	}
	return nil
}

// Reload re-reads the catalog sources and rebuilds the indexes. Cached
// suggestion responses are flushed so no stale ranking survives the swap.
// On failure the previous catalog keeps serving.
func (e *Engine) Reload(ctx context.Context) error {
	if err := e.rebuild(ctx); err != nil {
		return err
	}
	if err := e.cache.DeleteByPrefix(ctx, suggest.CachePrefix); err != nil {
		e.logger.Warn().Err(err).Msg("Suggestion cache flush failed after reload")
	}
	return nil
}

// Process runs the full suggestion pipeline for one query.
func (e *Engine) Process(ctx context.Context, req suggest.Request) (*suggest.Response, error) {
	e.mu.RLock()
	orch := e.orchestrator
	e.mu.RUnlock()
	return orch.Process(ctx, req)
}

// SearchCodes performs a direct lexical search over the catalog.
func (e *Engine) SearchCodes(text string, filters suggest.SearchFilters) []*catalog.CodeRecord {
	e.mu.RLock()
	orch := e.orchestrator
	e.mu.RUnlock()
	return orch.SearchCodes(text, filters)
}

// GetCode looks up a single catalog record.
func (e *Engine) GetCode(code string) (*catalog.CodeRecord, bool) {
	e.mu.RLock()
	orch := e.orchestrator
	e.mu.RUnlock()
	return orch.GetCode(code)
}

// Cache exposes the engine's cache client for collaborators that share it,
// such as the audit logger.
func (e *Engine) Cache() cache.Client {
	return e.cache
}

// CatalogSize returns the number of loaded catalog records.
func (e *Engine) CatalogSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog.Size()
}

// VectorAvailable reports whether the semantic retrieval path is serving.
func (e *Engine) VectorAvailable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vec.IsAvailable()
}

// Close releases the engine's external connections.
func (e *Engine) Close() error {
	e.mu.RLock()
	vec := e.vec
	e.mu.RUnlock()
	if err := vec.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("Vector adapter close failed")
	}
	return e.cache.Close()
}

func newCacheClient(cfg *config.Config, logger *observability.Logger) cache.Client {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err == nil {
			logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Using Redis query cache")
			return client
		}
		logger.Warn().Err(err).Msg("Redis unavailable, using in-memory query cache")
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries)
}

// newVectorAdapter builds and populates the vector index when an embedding
// provider is configured; otherwise the engine runs lexical-only.
func newVectorAdapter(ctx context.Context, cfg *config.Config, logger *observability.Logger, cat *catalog.Catalog) vector.Adapter {
	if !cfg.Vector.Enabled {
		logger.Info().Msg("Vector retrieval disabled")
		return vector.Unavailable{}
	}

	embedder, err := embedding.NewClient(embedding.Config{
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	if err != nil {
		logger.Info().Err(err).Msg("No embedding provider, running lexical-only")
		return vector.Unavailable{}
	}

	cached := embedding.NewCachingEmbedder(embedder, embedding.CacheConfig{
		PrefixLen: cfg.Embedding.CachePrefixLen,
		MaxSize:   cfg.Embedding.CacheSize,
	})

	idx := vector.NewMemoryIndex(logger, cached)
	if err := idx.Upsert(ctx, suggest.VectorDocuments(cat)); err != nil {
		logger.Warn().Err(err).Msg("Vector index population failed")
	}
	return idx
}

func newAICollaborators(cfg *config.Config, logger *observability.Logger) (ai.ContextExtractor, ai.ExplanationGenerator) {
	aiCfg := ai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}

	extractor, err := ai.NewLLMExtractor(aiCfg)
	if err != nil {
		logger.Info().Err(err).Msg("No AI credentials, context extraction disabled")
		return ai.NopExtractor{}, nil
	}

	explainer, err := ai.NewLLMExplainer(aiCfg)
	if err != nil {
		return extractor, nil
	}
	return extractor, explainer
}

// variantTableFromConfig converts the YAML variant override into the typed
// table. An empty map yields nil, which selects the built-in schedule.
func variantTableFromConfig(raw map[string]map[string]string) catalog.VariantTable {
	if len(raw) == 0 {
		return nil
	}

	table := make(catalog.VariantTable, len(raw))
	for level, slots := range raw {
		entry := make(map[catalog.TimeSlot]string, len(slots))
		for slot, code := range slots {
			entry[catalog.ParseSlot(slot)] = catalog.NormalizeCode(code)
		}
		table[catalog.AssessmentLevel(level)] = entry
	}
	return table
}
