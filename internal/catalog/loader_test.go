package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbill-ai/coding-engine/internal/observability"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	cat := New(observability.Nop(), Config{Sources: []string{"testdata/catalog.csv"}})
	require.NoError(t, cat.Load(context.Background()))
	return cat
}

func TestCatalog_Load_FixtureShape(t *testing.T) {
	cat := testCatalog(t)

	// 25 data rows, 2 malformed (empty description, numeric leading code).
	assert.Equal(t, 23, cat.Size())
	assert.Equal(t, 2, cat.Skipped())

	for _, rec := range cat.All() {
		assert.False(t, rec.Amount.IsNegative(), "amount must be non-negative for %s", rec.Code)
		assert.Contains(t, Categories, rec.Category, "category outside enum for %s", rec.Code)
	}
}

func TestCatalog_Load_SecondCallIsNoOp(t *testing.T) {
	cat := testCatalog(t)
	before := cat.Size()

	require.NoError(t, cat.Load(context.Background()))
	assert.Equal(t, before, cat.Size())
}

func TestCatalog_Load_NoSource(t *testing.T) {
	cat := New(observability.Nop(), Config{Sources: []string{"testdata/does-not-exist.csv"}})

	err := cat.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCatalogSource)
}

func TestCatalog_LoadFromReader_Idempotent(t *testing.T) {
	const csv = "code,description,notes,amount\nA001,General assessment,,77.20\nH101,Minor assessment,Daytime 8:00-17:00,35.00\n"

	cat := New(observability.Nop(), Config{})
	require.NoError(t, cat.LoadFromReader(strings.NewReader(csv)))
	require.NoError(t, cat.LoadFromReader(strings.NewReader(csv)))

	assert.Equal(t, 2, cat.Size(), "reload must rebuild, not accumulate")
}

func TestCatalog_Load_FieldParsing(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		code     string
		category Category
		slot     TimeSlot
		amount   string
	}{
		{"H101", CategoryEmergency, SlotDay, "35"},
		{"H131", CategoryEmergency, SlotEvening, "45"},
		{"H151", CategoryEmergency, SlotNight, "55"},
		{"H103", CategoryEmergency, SlotDay, "120"}, // "$120.00" in source
		{"E403", CategoryPremium, SlotWeekend, "45"},
		{"A001", CategoryAssessment, "", "77.2"},
		{"K013", CategoryCounselling, "", "62.75"},
		{"R527", CategorySurgery, "", "250"},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			rec, ok := cat.Get(tc.code)
			require.True(t, ok)
			assert.Equal(t, tc.category, rec.Category)
			assert.Equal(t, tc.slot, rec.TimeOfDay)
			want, err := decimal.NewFromString(tc.amount)
			require.NoError(t, err)
			assert.True(t, rec.Amount.Equal(want), "amount %s != %s", rec.Amount, want)
		})
	}
}

func TestCatalog_Load_QuotedMultilineField(t *testing.T) {
	cat := testCatalog(t)

	rec, ok := cat.Get("K013")
	require.True(t, ok)
	assert.Contains(t, rec.UsageNotes, "minimum 20 minutes")
	assert.Contains(t, rec.UsageNotes, "Extended sessions")
	want, _ := decimal.NewFromString("62.75")
	assert.True(t, rec.Amount.Equal(want), "amount column must survive the embedded newline")
}

func TestCatalog_Load_NoteClauses(t *testing.T) {
	cat := testCatalog(t)

	rec, ok := cat.Get("G521")
	require.True(t, ok)
	require.Len(t, rec.BundlingRules, 1)
	assert.Contains(t, rec.BundlingRules[0], "Not billable with H101")

	rec, ok = cat.Get("Z437")
	require.True(t, ok)
	require.Len(t, rec.Exclusions, 1)
	assert.Contains(t, rec.Exclusions[0], "Do not bill")
}

func TestCatalog_GetVariant_FallsBackToBareCode(t *testing.T) {
	cat := testCatalog(t)

	// H151 carries the Night slot; a Weekend lookup falls back to the bare
	// code because Night and Weekend share a physical code.
	rec, ok := cat.GetVariant("H151", SlotWeekend)
	require.True(t, ok)
	assert.Equal(t, "H151", rec.Code)

	rec, ok = cat.GetVariant("h101", SlotDay)
	require.True(t, ok, "lookup must normalize case")
	assert.Equal(t, "H101", rec.Code)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "35.00", "35"},
		{"dollar sign", "$120.00", "120"},
		{"euro with thousands", "€1,250.50", "1250.5"},
		{"text around amount", "approx 45.00 per visit", "45"},
		{"garbage", "n/a", "0"},
		{"empty", "", "0"},
		{"negative", "-12.00", "12"}, // sign is stripped with the prefix text
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tc.want)
			require.NoError(t, err)
			assert.True(t, parseAmount(tc.raw).Equal(want))
		})
	}
}

func TestSplitFields_QuoteHandling(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want []string
	}{
		{
			name: "unquoted",
			row:  "A001,General assessment,,77.20",
			want: []string{"A001", "General assessment", "", "77.20"},
		},
		{
			name: "quoted comma",
			row:  `K013,Counselling,"Per unit, minimum 20 minutes",62.75`,
			want: []string{"K013", "Counselling", "Per unit, minimum 20 minutes", "62.75"},
		},
		{
			name: "escaped quotes",
			row:  `C124,Consultation,"Referred as ""urgent"" by GP",105.00`,
			want: []string{"C124", "Consultation", `Referred as "urgent" by GP`, "105.00"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitFields(tc.row))
		})
	}
}
