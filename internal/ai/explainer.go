package ai

import (
	"context"
	"fmt"
	"strings"
)

// ExplanationGenerator produces a natural-language explanation for a set of
// suggested codes.
type ExplanationGenerator interface {
	Explain(ctx context.Context, clinicalText string, codes []string, totalRevenue string) (string, error)
}

const explainerSystemPrompt = `You are a medical billing assistant. Given an encounter note and the
suggested billing codes, write a short plain-language explanation (2-3
sentences) of why these codes apply. Do not invent codes or amounts.`

// LLMExplainer generates explanations via a chat-completions model.
type LLMExplainer struct {
	client *client
}

// NewLLMExplainer creates an explainer backed by an LLM.
func NewLLMExplainer(cfg Config) (*LLMExplainer, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &LLMExplainer{client: c}, nil
}

// Explain returns the model's explanation text. Errors are returned to the
// caller, which substitutes a deterministic template.
func (e *LLMExplainer) Explain(ctx context.Context, clinicalText string, codes []string, totalRevenue string) (string, error) {
	user := fmt.Sprintf("Encounter note:\n%s\n\nSuggested codes: %s\nTotal billable amount: %s",
		clinicalText, strings.Join(codes, ", "), totalRevenue)

	reply, err := e.client.complete(ctx, explainerSystemPrompt, user, 300)
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("empty explanation reply")
	}
	return reply, nil
}

// TemplateExplanation is the deterministic fallback used when the generator
// is unavailable or fails.
func TemplateExplanation(codes []string, totalRevenue string) string {
	if len(codes) == 0 {
		return "No billing codes matched the clinical description."
	}
	return fmt.Sprintf("Suggested %d billing code(s): %s. Estimated total billable amount: %s.",
		len(codes), strings.Join(codes, ", "), totalRevenue)
}

var _ ExplanationGenerator = (*LLMExplainer)(nil)
