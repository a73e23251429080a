package suggest

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/medbill-ai/coding-engine/internal/catalog"
)

// Risk scoring thresholds. Amounts are compared against the fee schedule's
// audit bands; see riskScore.
var (
	amountBandHigh = decimal.NewFromInt(200)
	amountBandMid  = decimal.NewFromInt(100)
)

// riskScore computes the raw per-code audit-risk score.
func riskScore(rec *catalog.CodeRecord) int {
	score := 0

	switch {
	case rec.Amount.GreaterThan(amountBandHigh):
		score += 2
	case rec.Amount.GreaterThan(amountBandMid):
		score += 1
	}

	if rec.Category == catalog.CategoryPremium {
		score++
	}
	if strings.Contains(strings.ToLower(rec.Description), "critical") {
		score += 2
	}
	if len(rec.BundlingRules) > 0 {
		score++
	}

	return score
}

// RiskOf maps a code to its audit-risk tier.
func RiskOf(rec *catalog.CodeRecord) RiskLevel {
	switch score := riskScore(rec); {
	case score < 2:
		return RiskLow
	case score < 4:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Assessment is the aggregate revenue and risk picture for a suggestion set.
type Assessment struct {
	TotalRevenue    decimal.Decimal
	OverallRisk     RiskLevel
	ComplianceScore int
	Documentation   []string
}

// Aggregate sums revenue and derives the overall risk and compliance score
// for the final suggestion list.
func Aggregate(suggestions []Suggestion) Assessment {
	total := decimal.Zero
	highCount := 0
	mediumCount := 0
	primaryCount := 0
	var docs []string
	seenDocs := make(map[string]struct{})

	for _, s := range suggestions {
		total = total.Add(s.RevenueImpact)

		switch s.RiskLevel {
		case RiskHigh:
			highCount++
		case RiskMedium:
			mediumCount++
		}

		if s.Role == catalog.RolePrimary {
			primaryCount++
		}

		for _, doc := range s.Documentation {
			if _, ok := seenDocs[doc]; ok {
				continue
			}
			seenDocs[doc] = struct{}{}
			docs = append(docs, doc)
		}
	}

	multiplePrimaries := primaryCount > 1

	// More than one primary assessment is a structural billing error, not
	// just a heuristic signal.
	overall := RiskLow
	switch {
	case highCount > 2 || multiplePrimaries:
		overall = RiskHigh
	case highCount > 0 || mediumCount > 3:
		overall = RiskMedium
	}

	compliance := 100 - 15*highCount - 5*mediumCount
	if multiplePrimaries {
		compliance -= 20
	}
	if compliance < 0 {
		compliance = 0
	}

	return Assessment{
		TotalRevenue:    total,
		OverallRisk:     overall,
		ComplianceScore: compliance,
		Documentation:   docs,
	}
}

// documentationFor derives the chart-documentation requirements for a
// suggested code.
func documentationFor(rec *catalog.CodeRecord, role catalog.Role) []string {
	var docs []string

	if role == catalog.RolePremium || rec.TimeOfDay != "" {
		docs = append(docs, "Record the exact time of service for "+rec.Code)
	}
	if strings.Contains(strings.ToLower(rec.Description), "critical") {
		docs = append(docs, "Document critical care time and interventions for "+rec.Code)
	}
	for _, rule := range rec.BundlingRules {
		docs = append(docs, "Bundling note for "+rec.Code+": "+rule)
	}

	return docs
}
