package monitoring

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbill-ai/coding-engine/internal/cache"
	"github.com/medbill-ai/coding-engine/internal/observability"
)

func TestAuditLogger_RecordPersistsEvent(t *testing.T) {
	memCache := cache.NewMemoryClient(100)
	audit := NewAuditLogger(observability.Nop(), memCache, 0)

	id := uuid.New()
	audit.Record(context.Background(), AuditEvent{
		ID:              id,
		RequestID:       "req-1",
		TimeSlot:        "Day",
		SuggestedCodes:  []string{"H103", "Z437"},
		TotalRevenue:    "180.25",
		OverallRisk:     "LOW",
		ComplianceScore: 100,
		LatencyMs:       12,
	})

	data, err := memCache.Get(context.Background(), auditKeyPrefix+id.String())
	require.NoError(t, err)

	var stored AuditEvent
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "req-1", stored.RequestID)
	assert.Equal(t, []string{"H103", "Z437"}, stored.SuggestedCodes)
	assert.False(t, stored.OccurredAt.IsZero(), "missing timestamp must be filled in")
}

func TestAuditLogger_NilCacheIsLogOnly(t *testing.T) {
	audit := NewAuditLogger(observability.Nop(), nil, 0)

	// Must not panic without a cache backend.
	audit.Record(context.Background(), AuditEvent{RequestID: "req-2"})
}
