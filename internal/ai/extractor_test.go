package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClinicalContext_Terms(t *testing.T) {
	c := ClinicalContext{
		ChiefComplaint: "chest pain",
		Symptoms:       []string{"dyspnea", "diaphoresis"},
		Diagnoses:      []string{"acute coronary syndrome"},
		Procedures:     []string{"ecg"},
		IsCriticalCare: true,
	}

	terms := c.Terms()
	assert.Equal(t, []string{
		"chest pain", "dyspnea", "diaphoresis",
		"acute coronary syndrome", "ecg", "critical care",
	}, terms)
}

func TestClinicalContext_Empty(t *testing.T) {
	assert.True(t, ClinicalContext{}.Empty())
	assert.False(t, ClinicalContext{IsTrauma: true}.Empty())
	assert.False(t, ClinicalContext{Symptoms: []string{"fever"}}.Empty())
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripFences(tc.in))
		})
	}
}

func TestNopExtractor(t *testing.T) {
	extracted, err := NopExtractor{}.Extract(context.Background(), "chest pain for two hours")
	require.NoError(t, err)
	assert.True(t, extracted.Empty())
}

func TestTemplateExplanation(t *testing.T) {
	assert.Equal(t,
		"No billing codes matched the clinical description.",
		TemplateExplanation(nil, "0.00"))

	got := TemplateExplanation([]string{"H103", "E403"}, "165.00")
	assert.Contains(t, got, "2 billing code(s)")
	assert.Contains(t, got, "H103, E403")
	assert.Contains(t, got, "165.00")
}

func TestNewLLMExtractor_RequiresCredentials(t *testing.T) {
	_, err := NewLLMExtractor(Config{})
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = NewLLMExplainer(Config{})
	assert.ErrorIs(t, err, ErrNoCredentials)
}
