// Package catalog loads the billable service-code reference catalog and
// derives category, time-of-day, and structural role for each code.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category groups codes by service family, derived from the code's first
// character via a fixed prefix table.
type Category string

const (
	CategoryAssessment   Category = "Assessment"
	CategoryConsultation Category = "Consultation"
	CategoryEmergency    Category = "Emergency"
	CategoryProcedure    Category = "Procedure"
	CategoryPremium      Category = "Premium"
	CategoryCounselling  Category = "Counselling"
	CategoryObstetrics   Category = "Obstetrics"
	CategorySurgery      Category = "Surgery"
	CategoryOther        Category = "Other"
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryAssessment,
	CategoryConsultation,
	CategoryEmergency,
	CategoryProcedure,
	CategoryPremium,
	CategoryCounselling,
	CategoryObstetrics,
	CategorySurgery,
	CategoryOther,
}

// categoryByPrefix maps a code's leading character to its category.
// Unknown prefixes resolve to CategoryOther.
var categoryByPrefix = map[byte]Category{
	'A': CategoryAssessment,
	'C': CategoryConsultation,
	'E': CategoryPremium,
	'G': CategoryProcedure,
	'H': CategoryEmergency,
	'K': CategoryCounselling,
	'P': CategoryObstetrics,
	'R': CategorySurgery,
	'Z': CategoryProcedure,
}

// CategoryOf derives the category for a code.
func CategoryOf(code string) Category {
	if code == "" {
		return CategoryOther
	}
	if cat, ok := categoryByPrefix[code[0]]; ok {
		return cat
	}
	return CategoryOther
}

// Role is the structural billing role of a code. Exactly one primary
// assessment is valid per encounter; add-ons and premiums stack on top.
type Role string

const (
	RolePrimary Role = "PRIMARY"
	RoleAddOn   Role = "ADD_ON"
	RolePremium Role = "PREMIUM"
)

// CodeRecord is one billable service entry from the reference catalog.
// Records are loaded once at startup and read-only afterward.
type CodeRecord struct {
	Code          string          `json:"code"`
	Description   string          `json:"description"`
	UsageNotes    string          `json:"usageNotes,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Category      Category        `json:"category"`
	TimeOfDay     TimeSlot        `json:"timeOfDay,omitempty"`
	Role          Role            `json:"role"`
	IsPrimary     bool            `json:"isPrimary"`
	IsAddOn       bool            `json:"isAddOn"`
	Modifiers     []string        `json:"modifiers,omitempty"`
	BundlingRules []string        `json:"bundlingRules,omitempty"`
	Exclusions    []string        `json:"exclusions,omitempty"`
}

// SlotKey returns the compound index key for a code and time slot.
func SlotKey(code string, slot TimeSlot) string {
	return code + "|" + string(slot)
}

// NormalizeCode canonicalizes a code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
