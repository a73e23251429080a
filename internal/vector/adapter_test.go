package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbill-ai/coding-engine/internal/embedding"
	"github.com/medbill-ai/coding-engine/internal/observability"
)

// failingEmbedder always errors, exercising the degrade path.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding provider down")
}

func (failingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding provider down")
}

func (failingEmbedder) Model() string  { return "failing" }
func (failingEmbedder) Dimension() int { return 16 }

func testDocs() []Document {
	return []Document{
		{ID: "H103|Day", Text: "emergency assessment of multiple systems chest pain", Metadata: map[string]string{"category": "Emergency", "slot": "Day"}},
		{ID: "Z437|", Text: "simple laceration repair", Metadata: map[string]string{"category": "Procedure", "slot": ""}},
		{ID: "E403|Weekend", Text: "weekend premium", Metadata: map[string]string{"category": "Premium", "slot": "Weekend"}},
	}
}

func TestMemoryIndex_UpsertAndSearch(t *testing.T) {
	m := NewMemoryIndex(observability.Nop(), embedding.NewMockEmbedder(32))
	ctx := context.Background()

	assert.False(t, m.IsAvailable(), "empty index must not claim availability")

	require.NoError(t, m.Upsert(ctx, testDocs()))
	assert.True(t, m.IsAvailable())

	results, err := m.Search(ctx, "emergency assessment of multiple systems chest pain", 2, Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)

	// Identical text embeds to the identical vector, so it ranks first.
	assert.Equal(t, "H103|Day", results[0].ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestMemoryIndex_Search_Filters(t *testing.T) {
	m := NewMemoryIndex(observability.Nop(), embedding.NewMockEmbedder(32))
	ctx := context.Background()
	require.NoError(t, m.Upsert(ctx, testDocs()))

	results, err := m.Search(ctx, "assessment", 10, Filters{Categories: []string{"Premium"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "E403|Weekend", results[0].ID)

	results, err = m.Search(ctx, "assessment", 10, Filters{Slots: []string{"Day"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "H103|Day", results[0].ID)

	results, err = m.Search(ctx, "assessment", 10, Filters{Categories: []string{"Obstetrics"}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndex_EmbeddingFailureDegrades(t *testing.T) {
	m := NewMemoryIndex(observability.Nop(), failingEmbedder{})
	ctx := context.Background()

	// Upsert must not propagate the provider error.
	require.NoError(t, m.Upsert(ctx, testDocs()))
	assert.False(t, m.IsAvailable())

	results, err := m.Search(ctx, "anything", 5, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndex_NilEmbedder(t *testing.T) {
	m := NewMemoryIndex(observability.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, testDocs()))
	assert.False(t, m.IsAvailable())
}

func TestUnavailable(t *testing.T) {
	var a Adapter = Unavailable{}
	ctx := context.Background()

	assert.False(t, a.IsAvailable())
	assert.NoError(t, a.Upsert(ctx, testDocs()))

	results, err := a.Search(ctx, "anything", 5, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, a.Close())
}
