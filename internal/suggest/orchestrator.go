package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbill-ai/coding-engine/internal/ai"
	"github.com/medbill-ai/coding-engine/internal/cache"
	"github.com/medbill-ai/coding-engine/internal/catalog"
	"github.com/medbill-ai/coding-engine/internal/index"
	"github.com/medbill-ai/coding-engine/internal/observability"
	"github.com/medbill-ai/coding-engine/internal/vector"
)

// Tier confidences. Primaries and premiums are structurally mandated, so
// their confidence is fixed rather than derived from retrieval scores.
const (
	primaryConfidence  = 0.95
	premiumConfidence  = 0.90
	existingConfidence = 1.0
)

// CachePrefix namespaces cached suggestion responses so they can be flushed
// as a group, for example after a catalog reload.
const CachePrefix = "suggest:"

// Config holds orchestrator settings.
type Config struct {
	RetrievalTopK       int
	MaxSuggestions      int
	ConfidenceFloor     float64
	CacheTTL            time.Duration
	CollaboratorTimeout time.Duration
}

// Orchestrator owns transient per-query state and coordinates retrieval,
// classification, ranking, and aggregation. The catalog and lexical index
// it reads are immutable after startup; only the query cache mutates.
type Orchestrator struct {
	logger    *observability.Logger
	catalog   *catalog.Catalog
	resolver  *catalog.Resolver
	lexical   *index.Lexical
	vec       vector.Adapter
	extractor ai.ContextExtractor
	explainer ai.ExplanationGenerator
	cache     cache.Client
	cfg       Config
	now       func() time.Time
}

// New creates an orchestrator. Any of vec, extractor, explainer, and cache
// may be nil; each missing collaborator degrades to its fallback.
func New(
	logger *observability.Logger,
	cat *catalog.Catalog,
	resolver *catalog.Resolver,
	lexical *index.Lexical,
	vec vector.Adapter,
	extractor ai.ContextExtractor,
	explainer ai.ExplanationGenerator,
	cacheClient cache.Client,
	cfg Config,
) *Orchestrator {
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 20
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 10
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = 0.3
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = 10 * time.Second
	}
	if vec == nil {
		vec = vector.Unavailable{}
	}
	if extractor == nil {
		extractor = ai.NopExtractor{}
	}

	return &Orchestrator{
		logger:    logger.WithComponent("suggest"),
		catalog:   cat,
		resolver:  resolver,
		lexical:   lexical,
		vec:       vec,
		extractor: extractor,
		explainer: explainer,
		cache:     cacheClient,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetClock overrides the orchestrator clock. Tests only.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Process runs the full suggestion pipeline for one query. Retrieval always
// succeeds: an empty suggestion list is a valid result, and every external
// collaborator failure is replaced with a deterministic fallback.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Response, error) {
	start := o.now()

	if req.MaxSuggestions <= 0 {
		req.MaxSuggestions = o.cfg.MaxSuggestions
	}

	// An identical repeated query short-circuits everything, including the
	// external collaborators.
	key := o.cacheKey(req)
	if cached := o.checkCache(ctx, key); cached != nil {
		cached.Cached = true
		cached.LatencyMs = o.now().Sub(start).Milliseconds()
		o.logger.Debug().Str("key", key).Msg("Query cache hit")
		return cached, nil
	}

	// Explicit caller override wins over the wall clock.
	slot := req.TimeOfDay
	if slot == "" {
		slot = catalog.SlotAt(o.now())
	}

	// Best-effort context extraction; an error means an empty context.
	extracted := o.extractContext(ctx, req.ClinicalText)

	query := expandQuery(req.ClinicalText, extracted)

	candidates := o.retrieve(ctx, query)

	suggestions := o.merge(candidates, req, slot)

	assessment := Aggregate(suggestions)

	resp := &Response{
		RequestID:       uuid.NewString(),
		TimeSlot:        slot,
		Suggestions:     suggestions,
		TotalRevenue:    assessment.TotalRevenue,
		BaselineRevenue: baselineRevenue(req, o.catalog),
		OverallRisk:     assessment.OverallRisk,
		ComplianceScore: assessment.ComplianceScore,
		Documentation:   assessment.Documentation,
	}

	resp.Explanation = o.explain(ctx, req.ClinicalText, suggestions, assessment)

	o.storeCache(ctx, key, resp)

	resp.LatencyMs = o.now().Sub(start).Milliseconds()

	o.logger.Info().
		Str("request_id", resp.RequestID).
		Str("time_slot", string(slot)).
		Int("suggestions", len(suggestions)).
		Str("overall_risk", string(resp.OverallRisk)).
		Int64("latency_ms", resp.LatencyMs).
		Msg("Query processed")

	return resp, nil
}

// SearchCodes is a direct lexical lookup without AI ranking.
func (o *Orchestrator) SearchCodes(text string, filters SearchFilters) []*catalog.CodeRecord {
	matches := o.lexical.Search(text, o.cfg.RetrievalTopK)

	var records []*catalog.CodeRecord
	seen := make(map[string]struct{})
	for _, m := range matches {
		rec, ok := o.recordForID(m.ID)
		if !ok {
			continue
		}
		if filters.Category != "" && rec.Category != filters.Category {
			continue
		}
		if filters.Slot != "" && rec.TimeOfDay != "" && rec.TimeOfDay != filters.Slot {
			continue
		}
		if _, dup := seen[rec.Code]; dup {
			continue
		}
		seen[rec.Code] = struct{}{}
		records = append(records, rec)
	}

	return records
}

// GetCode returns the catalog record for a (normalized) code.
func (o *Orchestrator) GetCode(code string) (*catalog.CodeRecord, bool) {
	return o.catalog.Get(code)
}

// extractContext calls the clinical-context extractor under a bounded
// timeout; failure yields an empty context, never an error.
func (o *Orchestrator) extractContext(ctx context.Context, text string) ai.ClinicalContext {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CollaboratorTimeout)
	defer cancel()

	extracted, err := o.extractor.Extract(callCtx, text)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Context extraction failed, proceeding without context")
		return ai.ClinicalContext{}
	}
	return extracted
}

// expandQuery appends extracted context fields to the search text to improve
// recall for semantically related but lexically distant terms.
func expandQuery(text string, extracted ai.ClinicalContext) string {
	terms := extracted.Terms()
	if len(terms) == 0 {
		return text
	}
	return text + " " + strings.Join(terms, " ")
}

// retrieve tries the vector adapter first and falls back to the lexical
// index when it is unavailable or returns nothing.
func (o *Orchestrator) retrieve(ctx context.Context, query string) []CandidateMatch {
	topK := o.cfg.RetrievalTopK

	if o.vec.IsAvailable() {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CollaboratorTimeout)
		results, err := o.vec.Search(callCtx, query, topK, vector.Filters{})
		cancel()
		if err == nil && len(results) > 0 {
			candidates := make([]CandidateMatch, 0, len(results))
			for _, r := range results {
				rec, ok := o.recordForID(r.ID)
				if !ok {
					continue
				}
				candidates = append(candidates, CandidateMatch{
					Record:     rec,
					Confidence: float64(r.Score),
					Reason:     "semantic similarity to clinical description",
				})
			}
			if len(candidates) > 0 {
				return candidates
			}
		}
		o.logger.Debug().Msg("Vector search empty, falling back to lexical index")
	}

	matches := o.lexical.Search(query, topK)
	candidates := make([]CandidateMatch, 0, len(matches))
	for _, m := range matches {
		rec, ok := o.recordForID(m.ID)
		if !ok {
			continue
		}
		candidates = append(candidates, CandidateMatch{
			Record:     rec,
			Confidence: m.Score,
			Reason:     "keyword match on catalog text",
		})
	}
	return candidates
}

// merge classifies candidates by structural role and builds the final
// ordered suggestion list: primaries, then add-ons, then premiums, then any
// remaining hits above the confidence floor, each tier sorted by
// revenueImpact x confidence descending.
func (o *Orchestrator) merge(candidates []CandidateMatch, req Request, slot catalog.TimeSlot) []Suggestion {
	var primaries, addons, premiums, leftovers []Suggestion
	included := make(map[string]struct{})

	// Caller-supplied existing codes are kept as-is; duplicate primaries
	// among them surface as a structural risk rather than being dropped.
	for _, code := range req.ExistingCodes {
		rec, ok := o.catalog.Get(code)
		if !ok {
			continue
		}
		s := o.suggestion(rec, rec.Role, existingConfidence, "already on the encounter")
		switch rec.Role {
		case catalog.RolePrimary:
			primaries = append(primaries, s)
		case catalog.RolePremium:
			premiums = append(premiums, s)
		default:
			addons = append(addons, s)
		}
		included[rec.Code] = struct{}{}
	}

	// The best primary candidate is normalized to the slot-correct variant;
	// alternate primaries are competing assessments, not stackable codes,
	// so they are dropped rather than demoted.
	primaryTaken := len(primaries) > 0
	for _, c := range candidates {
		rec := c.Record

		switch rec.Role {
		case catalog.RolePrimary:
			if primaryTaken {
				continue
			}
			rec = o.normalizePrimary(rec, slot)
			if _, dup := included[rec.Code]; dup {
				continue
			}
			primaries = append(primaries, o.suggestion(rec, catalog.RolePrimary, primaryConfidence, c.Reason))
			included[rec.Code] = struct{}{}
			primaryTaken = true

		case catalog.RoleAddOn:
			if _, dup := included[rec.Code]; dup {
				continue
			}
			addons = append(addons, o.suggestion(rec, catalog.RoleAddOn, c.Confidence, c.Reason))
			included[rec.Code] = struct{}{}

		case catalog.RolePremium:
			if _, dup := included[rec.Code]; dup {
				continue
			}
			if rec.TimeOfDay == "" || rec.TimeOfDay == slot {
				premiums = append(premiums, o.suggestion(rec, catalog.RolePremium, premiumConfidence, "time-of-day premium"))
				included[rec.Code] = struct{}{}
			} else if c.Confidence >= o.cfg.ConfidenceFloor {
				// Premium for another slot: keep it visible only if the
				// match itself was strong.
				leftovers = append(leftovers, o.suggestion(rec, catalog.RolePremium, c.Confidence, c.Reason))
				included[rec.Code] = struct{}{}
			}
		}
	}

	// Deterministic premium eligibility: outside daytime hours the matching
	// slot premium applies even if retrieval never surfaced it.
	for _, rec := range o.catalog.ByCategory(catalog.CategoryPremium) {
		if rec.TimeOfDay != slot {
			continue
		}
		if _, dup := included[rec.Code]; dup {
			continue
		}
		premiums = append(premiums, o.suggestion(rec, catalog.RolePremium, premiumConfidence, "time-of-day premium"))
		included[rec.Code] = struct{}{}
	}

	sortTier(primaries)
	sortTier(addons)
	sortTier(premiums)
	sortTier(leftovers)

	merged := make([]Suggestion, 0, len(primaries)+len(addons)+len(premiums)+len(leftovers))
	merged = append(merged, primaries...)
	merged = append(merged, addons...)
	merged = append(merged, premiums...)
	merged = append(merged, leftovers...)

	if len(merged) > req.MaxSuggestions {
		merged = merged[:req.MaxSuggestions]
	}
	return merged
}

// normalizePrimary re-slots a multi-variant primary to the slot-correct
// physical code, falling back to the original record when the variant is
// missing from the catalog.
func (o *Orchestrator) normalizePrimary(rec *catalog.CodeRecord, slot catalog.TimeSlot) *catalog.CodeRecord {
	variant := o.resolver.VariantFor(rec.Code, slot)
	if variant == rec.Code {
		return rec
	}
	if resolved, ok := o.catalog.GetVariant(variant, slot); ok {
		return resolved
	}
	return rec
}

func (o *Orchestrator) suggestion(rec *catalog.CodeRecord, role catalog.Role, confidence float64, reason string) Suggestion {
	return Suggestion{
		Record:        rec,
		Role:          role,
		Reason:        reason,
		RevenueImpact: rec.Amount,
		Confidence:    confidence,
		RiskLevel:     RiskOf(rec),
		Documentation: documentationFor(rec, role),
	}
}

// sortTier orders a tier by revenueImpact x confidence descending, rewarding
// codes that are both valuable and well matched.
func sortTier(tier []Suggestion) {
	sort.SliceStable(tier, func(i, j int) bool {
		iScore := tier[i].RevenueImpact.InexactFloat64() * tier[i].Confidence
		jScore := tier[j].RevenueImpact.InexactFloat64() * tier[j].Confidence
		return iScore > jScore
	})
}

// explain requests a natural-language explanation from the external
// generator and synthesizes a deterministic template on any failure.
func (o *Orchestrator) explain(ctx context.Context, clinicalText string, suggestions []Suggestion, assessment Assessment) string {
	codes := make([]string, len(suggestions))
	for i, s := range suggestions {
		codes[i] = s.Record.Code
	}
	total := assessment.TotalRevenue.StringFixed(2)

	if o.explainer != nil {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CollaboratorTimeout)
		defer cancel()

		explanation, err := o.explainer.Explain(callCtx, clinicalText, codes, total)
		if err == nil {
			return explanation
		}
		o.logger.Warn().Err(err).Msg("Explanation generation failed, using template")
	}

	return ai.TemplateExplanation(codes, total)
}

// recordForID resolves a compound code|slot index key back to its record.
func (o *Orchestrator) recordForID(id string) (*catalog.CodeRecord, bool) {
	code, slotName, found := strings.Cut(id, "|")
	if found && slotName != "" {
		if rec, ok := o.catalog.GetVariant(code, catalog.TimeSlot(slotName)); ok {
			return rec, true
		}
	}
	return o.catalog.Get(code)
}

// cacheKey builds a deterministic key from the truncated query text, the
// explicit time override, and the encounter type.
func (o *Orchestrator) cacheKey(req Request) string {
	text := strings.ToLower(strings.TrimSpace(req.ClinicalText))
	if len(text) > 200 {
		text = text[:200]
	}

	combined := cache.CacheKey(text, string(req.TimeOfDay), req.EncounterType)
	sum := sha256.Sum256([]byte(combined))
	return CachePrefix + hex.EncodeToString(sum[:16])
}

func (o *Orchestrator) checkCache(ctx context.Context, key string) *Response {
	if o.cache == nil {
		return nil
	}

	data, err := o.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			o.logger.Debug().Err(err).Str("key", key).Msg("Cache get error")
		}
		return nil
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached response")
		return nil
	}
	return &resp
}

func (o *Orchestrator) storeCache(ctx context.Context, key string, resp *Response) {
	if o.cache == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Failed to marshal response for cache")
		return
	}

	if err := o.cache.Set(ctx, key, data, o.cfg.CacheTTL); err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
	}
}

// CatalogDocuments derives the immutable index documents from the loaded
// catalog: one per unique code + time-slot key, text assembled from code,
// description, usage notes, category, and slot label.
func CatalogDocuments(cat *catalog.Catalog) []index.Document {
	records := cat.All()
	docs := make([]index.Document, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		id := catalog.SlotKey(rec.Code, rec.TimeOfDay)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		docs = append(docs, index.Document{
			ID:   id,
			Code: rec.Code,
			Text: strings.ToLower(strings.Join([]string{
				rec.Code,
				rec.Description,
				rec.UsageNotes,
				string(rec.Category),
				string(rec.TimeOfDay),
			}, " ")),
		})
	}

	return docs
}

// VectorDocuments derives the vector-index documents from the catalog.
func VectorDocuments(cat *catalog.Catalog) []vector.Document {
	records := cat.All()
	docs := make([]vector.Document, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		id := catalog.SlotKey(rec.Code, rec.TimeOfDay)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		docs = append(docs, vector.Document{
			ID:   id,
			Text: rec.Code + " " + rec.Description + " " + rec.UsageNotes,
			Metadata: map[string]string{
				"category": string(rec.Category),
				"slot":     string(rec.TimeOfDay),
			},
		})
	}

	return docs
}

// baselineRevenue sums the amounts of the caller-supplied existing codes,
// giving the revenue picture before any new suggestions.
func baselineRevenue(req Request, cat *catalog.Catalog) decimal.Decimal {
	total := decimal.Zero
	for _, code := range req.ExistingCodes {
		if rec, ok := cat.Get(code); ok {
			total = total.Add(rec.Amount)
		}
	}
	return total
}
