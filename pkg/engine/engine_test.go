package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbill-ai/coding-engine/internal/catalog"
	"github.com/medbill-ai/coding-engine/internal/config"
	"github.com/medbill-ai/coding-engine/internal/observability"
	"github.com/medbill-ai/coding-engine/internal/suggest"
)

const testCatalogCSV = `code,description,usage_notes,amount
H101,Minor emergency assessment,Daytime assessment 8:00-17:00,35.00
H103,Emergency assessment of multiple systems including chest pain workup,Daytime assessment 8:00-17:00,120.00
E403,Weekend premium,Applies on weekends and holidays,45.00
Z437,Simple laceration repair,Do not bill with comprehensive wound repair.,60.25
A001,General assessment,,77.20
`

func testEngine(t *testing.T) *Engine {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogCSV), 0o644))

	cfg := config.DefaultConfig()
	cfg.Catalog.Sources = []string{path}
	cfg.Vector.Enabled = false

	eng, err := New(context.Background(), cfg, observability.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	return eng
}

func TestEngine_New_RequiresCatalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Catalog.Sources = []string{filepath.Join(t.TempDir(), "absent.csv")}

	_, err := New(context.Background(), cfg, observability.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNoCatalogSource)
}

func TestEngine_EndToEnd(t *testing.T) {
	eng := testEngine(t)

	assert.Equal(t, 5, eng.CatalogSize())
	assert.False(t, eng.VectorAvailable(), "no embedding provider configured")

	resp, err := eng.Process(context.Background(), suggest.Request{
		ClinicalText: "chest pain workup of multiple systems",
		TimeOfDay:    catalog.SlotDay,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "H103", resp.Suggestions[0].Record.Code)

	records := eng.SearchCodes("laceration repair", suggest.SearchFilters{})
	require.NotEmpty(t, records)
	assert.Equal(t, "Z437", records[0].Code)

	rec, ok := eng.GetCode("A001")
	require.True(t, ok)
	assert.Equal(t, catalog.CategoryAssessment, rec.Category)
}

func TestEngine_ReloadPicksUpCatalogChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogCSV), 0o644))

	cfg := config.DefaultConfig()
	cfg.Catalog.Sources = []string{path}
	cfg.Vector.Enabled = false

	eng, err := New(context.Background(), cfg, observability.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	req := suggest.Request{ClinicalText: "chest pain workup", TimeOfDay: catalog.SlotDay}
	_, err = eng.Process(context.Background(), req)
	require.NoError(t, err)

	updated := testCatalogCSV + "G212,Fracture reduction,,95.00\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, eng.Reload(context.Background()))

	assert.Equal(t, 6, eng.CatalogSize())

	// The reload flushes cached responses, so the repeat query recomputes.
	resp, err := eng.Process(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Cached)

	_, ok := eng.GetCode("G212")
	assert.True(t, ok)
}

func TestVariantTableFromConfig(t *testing.T) {
	assert.Nil(t, variantTableFromConfig(nil))
	assert.Nil(t, variantTableFromConfig(map[string]map[string]string{}))

	table := variantTableFromConfig(map[string]map[string]string{
		"minor": {"Day": "h101", "Weekend": "H161"},
	})
	require.NotNil(t, table)
	assert.Equal(t, "H101", table[catalog.LevelMinor][catalog.SlotDay])
	assert.Equal(t, "H161", table[catalog.LevelMinor][catalog.SlotWeekend])
}
