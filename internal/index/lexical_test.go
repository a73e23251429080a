package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() []Document {
	return []Document{
		{ID: "H103|Day", Code: "H103", Text: "h103 emergency assessment of multiple systems including chest pain workup daytime"},
		{ID: "H101|Day", Code: "H101", Text: "h101 minor emergency assessment daytime"},
		{ID: "Z437|", Code: "Z437", Text: "z437 simple laceration repair suturing"},
		{ID: "K013|", Code: "K013", Text: "k013 individual counselling per unit minimum twenty minutes"},
		{ID: "E403|Weekend", Code: "E403", Text: "e403 weekend premium holidays"},
	}
}

func TestLexical_Search_ExactDescriptionRanksFirst(t *testing.T) {
	idx := Build(testDocs())

	matches := idx.Search("chest pain multiple systems", 10)
	require.NotEmpty(t, matches)
	assert.Equal(t, "H103", matches[0].Code)
}

func TestLexical_Search_ScoresDescendAndRespectTopK(t *testing.T) {
	docs := testDocs()
	for i := 0; i < 10; i++ {
		docs = append(docs, Document{
			ID:   fmt.Sprintf("A%03d|", i),
			Code: fmt.Sprintf("A%03d", i),
			Text: "general assessment of patient condition",
		})
	}
	idx := Build(docs)

	matches := idx.Search("assessment of patient", 5)
	require.NotEmpty(t, matches)
	assert.LessOrEqual(t, len(matches), 5)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score, "scores must be non-increasing")
	}
	for _, m := range matches {
		assert.Greater(t, m.Score, minScore)
	}
}

func TestLexical_Search_NoCorpusOverlap(t *testing.T) {
	idx := Build(testDocs())

	assert.Empty(t, idx.Search("quantum chromodynamics", 10), "query terms absent from corpus")
	assert.Empty(t, idx.Search("", 10))
	assert.Empty(t, idx.Search("chest pain", 0), "topK zero returns nothing")
}

func TestLexical_Search_CodeTokenMatchesDirectly(t *testing.T) {
	idx := Build(testDocs())

	matches := idx.Search("Z437", 3)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Z437", matches[0].Code)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercase and split", "Chest Pain, acute!", []string{"chest", "pain", "acute"}},
		{"drops single characters", "a b chest x", []string{"chest"}},
		{"alphanumeric codes survive", "H103 workup", []string{"h103", "workup"}},
		{"empty", "", nil},
		{"punctuation only", "--- !!!", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Tokenize(tc.text))
		})
	}
}

func TestLexical_Build_EmptyCorpus(t *testing.T) {
	idx := Build(nil)
	assert.Zero(t, idx.Size())
	assert.Empty(t, idx.Search("anything", 5))
}
