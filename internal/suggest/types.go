// Package suggest orchestrates billing-code retrieval, role classification,
// ranking, and revenue/risk aggregation for a clinical query.
package suggest

import (
	"github.com/shopspring/decimal"

	"github.com/medbill-ai/coding-engine/internal/catalog"
)

// RiskLevel is the heuristic audit-risk tier for a code or a whole response.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// CandidateMatch is one retrieval hit, ordered by confidence descending.
type CandidateMatch struct {
	Record     *catalog.CodeRecord
	Confidence float64
	Reason     string
}

// Suggestion is one ranked billing-code recommendation. Created per query,
// never persisted by this core.
type Suggestion struct {
	Record        *catalog.CodeRecord `json:"record"`
	Role          catalog.Role        `json:"role"`
	Reason        string              `json:"reason"`
	RevenueImpact decimal.Decimal     `json:"revenueImpact"`
	Confidence    float64             `json:"confidence"`
	RiskLevel     RiskLevel           `json:"riskLevel"`
	Documentation []string            `json:"documentation,omitempty"`
}

// Request is a billing-code suggestion query. ClinicalText is required and
// validated by the boundary layer before reaching this core.
type Request struct {
	ClinicalText   string           `json:"clinicalText"`
	EncounterType  string           `json:"encounterType,omitempty"`
	TimeOfDay      catalog.TimeSlot `json:"timeOfDay,omitempty"` // explicit override; wins over wall clock
	Specialty      string           `json:"specialty,omitempty"`
	ExistingCodes  []string         `json:"existingCodes,omitempty"`
	MaxSuggestions int              `json:"maxSuggestions,omitempty"` // [1,20], default 10
}

// Response is the ordered suggestion list with revenue totals, risk
// assessment, and an opaque explanation from the external generator.
type Response struct {
	RequestID       string           `json:"requestId"`
	TimeSlot        catalog.TimeSlot `json:"timeSlot"`
	Suggestions     []Suggestion     `json:"suggestions"`
	TotalRevenue    decimal.Decimal  `json:"totalRevenue"`
	BaselineRevenue decimal.Decimal  `json:"baselineRevenue"`
	OverallRisk     RiskLevel        `json:"overallRisk"`
	ComplianceScore int              `json:"complianceScore"`
	Documentation   []string         `json:"documentation,omitempty"`
	Explanation     string           `json:"explanation"`
	Cached          bool             `json:"cached"`
	LatencyMs       int64            `json:"latencyMs"`
}

// SearchFilters narrows a direct code search.
type SearchFilters struct {
	Category catalog.Category
	Slot     catalog.TimeSlot
}
