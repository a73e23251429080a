// Package monitoring provides audit logging for suggestion queries.
package monitoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medbill-ai/coding-engine/internal/cache"
	"github.com/medbill-ai/coding-engine/internal/observability"
)

const auditKeyPrefix = "audit:suggestion:"

// AuditLogger records suggestion-query audit events. Events always go to the
// structured log; when a cache client is present they are also kept there for
// short-term retrieval.
type AuditLogger struct {
	logger *observability.Logger
	cache  cache.Client
	ttl    time.Duration
	now    func() time.Time
}

// AuditEvent is one auditable suggestion query.
type AuditEvent struct {
	ID              uuid.UUID `json:"id"`
	RequestID       string    `json:"requestId"`
	TimeSlot        string    `json:"timeSlot"`
	SuggestedCodes  []string  `json:"suggestedCodes"`
	TotalRevenue    string    `json:"totalRevenue"`
	OverallRisk     string    `json:"overallRisk"`
	ComplianceScore int       `json:"complianceScore"`
	Cached          bool      `json:"cached"`
	LatencyMs       int64     `json:"latencyMs"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// NewAuditLogger creates an audit logger. cacheClient may be nil.
func NewAuditLogger(logger *observability.Logger, cacheClient cache.Client, ttl time.Duration) *AuditLogger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuditLogger{
		logger: logger.WithComponent("audit"),
		cache:  cacheClient,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Record logs one suggestion-query event. Failures to persist are logged and
// swallowed; auditing never blocks the query path.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.now()
	}

	a.logger.Info().
		Str("event_id", event.ID.String()).
		Str("request_id", event.RequestID).
		Str("time_slot", event.TimeSlot).
		Strs("codes", event.SuggestedCodes).
		Str("total_revenue", event.TotalRevenue).
		Str("overall_risk", event.OverallRisk).
		Int("compliance_score", event.ComplianceScore).
		Bool("cached", event.Cached).
		Int64("latency_ms", event.LatencyMs).
		Msg("Suggestion query audited")

	if a.cache == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to marshal audit event")
		return
	}
	if err := a.cache.Set(ctx, auditKeyPrefix+event.ID.String(), data, a.ttl); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to persist audit event")
	}
}
