package catalog

import "time"

// TimeSlot is one of the four billing periods governing code variants and
// premium eligibility.
type TimeSlot string

const (
	SlotDay     TimeSlot = "Day"
	SlotEvening TimeSlot = "Evening"
	SlotNight   TimeSlot = "Night"
	SlotWeekend TimeSlot = "Weekend"
)

// ParseSlot returns the TimeSlot matching s, or "" if s names no slot.
func ParseSlot(s string) TimeSlot {
	switch TimeSlot(s) {
	case SlotDay, SlotEvening, SlotNight, SlotWeekend:
		return TimeSlot(s)
	}
	return ""
}

// SlotAt maps wall-clock time to a billing period. Pure function of
// (weekday, hour): Saturday and Sunday are Weekend at any hour, otherwise
// [0,8) is Night, [8,17) is Day, and the rest of the day is Evening.
func SlotAt(t time.Time) TimeSlot {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return SlotWeekend
	}

	switch h := t.Hour(); {
	case h < 8:
		return SlotNight
	case h < 17:
		return SlotDay
	default:
		return SlotEvening
	}
}

// AssessmentLevel identifies an assessment-level family that resolves to a
// distinct physical code per time slot.
type AssessmentLevel string

const (
	LevelMinor           AssessmentLevel = "minor"
	LevelComprehensive   AssessmentLevel = "comprehensive"
	LevelMultipleSystems AssessmentLevel = "multiple_systems"
	LevelReassessment    AssessmentLevel = "reassessment"
)

// VariantTable maps (assessment level, time slot) to a physical code.
type VariantTable map[AssessmentLevel]map[TimeSlot]string

// DefaultVariantTable returns the reference fee-schedule variant table.
// Night and Weekend sharing a variant per level mirrors the source data;
// it is table data rather than a hard-coded branch so a corrected schedule
// can be loaded from config without code changes.
func DefaultVariantTable() VariantTable {
	return VariantTable{
		LevelMinor: {
			SlotDay:     "H101",
			SlotEvening: "H131",
			SlotNight:   "H151",
			SlotWeekend: "H151",
		},
		LevelComprehensive: {
			SlotDay:     "H102",
			SlotEvening: "H132",
			SlotNight:   "H152",
			SlotWeekend: "H152",
		},
		LevelMultipleSystems: {
			SlotDay:     "H103",
			SlotEvening: "H133",
			SlotNight:   "H153",
			SlotWeekend: "H153",
		},
		LevelReassessment: {
			SlotDay:     "H104",
			SlotEvening: "H134",
			SlotNight:   "H154",
			SlotWeekend: "H154",
		},
	}
}

// Resolver resolves assessment levels to time-variant codes.
type Resolver struct {
	table VariantTable
	// byCode is the reverse index: physical code -> level.
	byCode map[string]AssessmentLevel
}

// NewResolver builds a resolver from a variant table. A nil table uses the
// reference schedule.
func NewResolver(table VariantTable) *Resolver {
	if table == nil {
		table = DefaultVariantTable()
	}

	byCode := make(map[string]AssessmentLevel)
	for level, slots := range table {
		for _, code := range slots {
			byCode[code] = level
		}
	}

	return &Resolver{table: table, byCode: byCode}
}

// ResolveVariant maps an assessment level and slot to its physical code.
// A missing mapping returns ok=false; the caller falls back to the
// level-agnostic code if one exists.
func (r *Resolver) ResolveVariant(level AssessmentLevel, slot TimeSlot) (string, bool) {
	slots, ok := r.table[level]
	if !ok {
		return "", false
	}
	code, ok := slots[slot]
	return code, ok
}

// LevelOf returns the assessment level a physical code belongs to, if any.
func (r *Resolver) LevelOf(code string) (AssessmentLevel, bool) {
	level, ok := r.byCode[NormalizeCode(code)]
	return level, ok
}

// VariantFor re-slots a physical code: if code belongs to a variant family,
// it returns the family's code for the given slot. Codes outside any family
// are returned unchanged.
func (r *Resolver) VariantFor(code string, slot TimeSlot) string {
	level, ok := r.LevelOf(code)
	if !ok {
		return code
	}
	if variant, ok := r.ResolveVariant(level, slot); ok {
		return variant
	}
	return code
}
