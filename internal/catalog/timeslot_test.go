package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want TimeSlot
	}{
		{"saturday afternoon", time.Date(2025, 6, 14, 14, 0, 0, 0, time.UTC), SlotWeekend},
		{"sunday 3am still weekend", time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC), SlotWeekend},
		{"monday 3am", time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), SlotNight},
		{"monday 7:59", time.Date(2025, 6, 16, 7, 59, 0, 0, time.UTC), SlotNight},
		{"monday 8:00 boundary", time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC), SlotDay},
		{"monday 2pm", time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC), SlotDay},
		{"monday 16:59", time.Date(2025, 6, 16, 16, 59, 0, 0, time.UTC), SlotDay},
		{"monday 17:00 boundary", time.Date(2025, 6, 16, 17, 0, 0, 0, time.UTC), SlotEvening},
		{"friday 11pm", time.Date(2025, 6, 20, 23, 0, 0, 0, time.UTC), SlotEvening},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SlotAt(tc.at))
		})
	}
}

func TestParseSlot(t *testing.T) {
	assert.Equal(t, SlotDay, ParseSlot("Day"))
	assert.Equal(t, SlotWeekend, ParseSlot("Weekend"))
	assert.Equal(t, TimeSlot(""), ParseSlot("day"), "slot names are case sensitive")
	assert.Equal(t, TimeSlot(""), ParseSlot("Midnight"))
}

func TestResolver_ResolveVariant(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		level AssessmentLevel
		slot  TimeSlot
		want  string
	}{
		{LevelMinor, SlotDay, "H101"},
		{LevelMinor, SlotEvening, "H131"},
		{LevelMinor, SlotNight, "H151"},
		{LevelMinor, SlotWeekend, "H151"},
		{LevelComprehensive, SlotDay, "H102"},
		{LevelMultipleSystems, SlotNight, "H153"},
		{LevelReassessment, SlotWeekend, "H154"},
	}

	for _, tc := range tests {
		got, ok := r.ResolveVariant(tc.level, tc.slot)
		require.True(t, ok, "%s/%s", tc.level, tc.slot)
		assert.Equal(t, tc.want, got)
	}

	_, ok := r.ResolveVariant("unknown-level", SlotDay)
	assert.False(t, ok)
}

func TestResolver_VariantFor(t *testing.T) {
	r := NewResolver(nil)

	// Re-slotting a daytime code to the evening variant.
	assert.Equal(t, "H133", r.VariantFor("H103", SlotEvening))
	// Night and Weekend resolve to the same physical code.
	assert.Equal(t, r.VariantFor("H102", SlotNight), r.VariantFor("H102", SlotWeekend))
	// Codes outside a variant family pass through unchanged.
	assert.Equal(t, "A001", r.VariantFor("A001", SlotNight))
	// Lookup normalizes case.
	assert.Equal(t, "H151", r.VariantFor("h101", SlotNight))
}

func TestResolver_CustomTable(t *testing.T) {
	table := VariantTable{
		LevelMinor: {
			SlotDay:     "H101",
			SlotNight:   "H151",
			SlotWeekend: "H161", // schedule with a distinct weekend variant
		},
	}
	r := NewResolver(table)

	assert.Equal(t, "H161", r.VariantFor("H101", SlotWeekend))

	level, ok := r.LevelOf("H161")
	require.True(t, ok)
	assert.Equal(t, LevelMinor, level)
}
