package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ClinicalContext holds the optional structured fields extracted from a
// free-text clinical description. Every field may be absent.
type ClinicalContext struct {
	ChiefComplaint string   `json:"chiefComplaint,omitempty"`
	Symptoms       []string `json:"symptoms,omitempty"`
	Diagnoses      []string `json:"diagnoses,omitempty"`
	Procedures     []string `json:"procedures,omitempty"`
	IsCriticalCare bool     `json:"isCriticalCare,omitempty"`
	IsTrauma       bool     `json:"isTrauma,omitempty"`
}

// Terms flattens the extracted fields into search-expansion terms.
func (c ClinicalContext) Terms() []string {
	var terms []string
	if c.ChiefComplaint != "" {
		terms = append(terms, c.ChiefComplaint)
	}
	terms = append(terms, c.Symptoms...)
	terms = append(terms, c.Diagnoses...)
	terms = append(terms, c.Procedures...)
	if c.IsCriticalCare {
		terms = append(terms, "critical care")
	}
	if c.IsTrauma {
		terms = append(terms, "trauma")
	}
	return terms
}

// Empty reports whether nothing was extracted.
func (c ClinicalContext) Empty() bool {
	return c.ChiefComplaint == "" &&
		len(c.Symptoms) == 0 &&
		len(c.Diagnoses) == 0 &&
		len(c.Procedures) == 0 &&
		!c.IsCriticalCare &&
		!c.IsTrauma
}

// ContextExtractor extracts structured clinical context from free text.
type ContextExtractor interface {
	Extract(ctx context.Context, text string) (ClinicalContext, error)
}

const extractorSystemPrompt = `You extract structured clinical context from encounter notes.
Reply with a single JSON object and nothing else, using these keys (all optional):
chiefComplaint (string), symptoms (string array), diagnoses (string array),
procedures (string array), isCriticalCare (bool), isTrauma (bool).`

// LLMExtractor extracts clinical context via a chat-completions model.
type LLMExtractor struct {
	client *client
}

// NewLLMExtractor creates an extractor backed by an LLM.
func NewLLMExtractor(cfg Config) (*LLMExtractor, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &LLMExtractor{client: c}, nil
}

// Extract parses the model's JSON reply into a ClinicalContext. Errors are
// returned to the caller, which substitutes an empty context.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (ClinicalContext, error) {
	reply, err := e.client.complete(ctx, extractorSystemPrompt, text, 512)
	if err != nil {
		return ClinicalContext{}, err
	}

	var extracted ClinicalContext
	if err := json.Unmarshal([]byte(stripFences(reply)), &extracted); err != nil {
		return ClinicalContext{}, fmt.Errorf("parse extraction reply: %w", err)
	}
	return extracted, nil
}

// stripFences removes a markdown code fence wrapper, which some models add
// around JSON replies.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// NopExtractor always returns an empty context. Used when no AI credentials
// are configured.
type NopExtractor struct{}

// Extract returns an empty context.
func (NopExtractor) Extract(ctx context.Context, text string) (ClinicalContext, error) {
	return ClinicalContext{}, nil
}

var (
	_ ContextExtractor = (*LLMExtractor)(nil)
	_ ContextExtractor = NopExtractor{}
)
