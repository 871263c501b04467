package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/clausecheck/clausecheck/internal/model"
)

// Provider defines the interface for model judges
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a prompt and returns the raw model text
	Complete(ctx context.Context, prompt string) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Excerpt is one retrieved span offered to the judge as context
type Excerpt struct {
	Text string
	Page int
}

// Request carries everything the judge needs for one rule
type Request struct {
	Rule     model.Rule
	Excerpts []Excerpt

	// CorrectiveHint is appended on schema-retry attempts to steer the
	// model back to the expected JSON shape
	CorrectiveHint string
}

const systemInstruction = "You are a contract compliance analyst. You judge rules strictly from the provided excerpts and respond with a single JSON object, nothing else."

// BuildPrompt constructs the judging prompt. The model may only cite text
// from the supplied excerpts; every quote must carry its page anchor.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Evaluate the following compliance rule against the contract excerpts below.

Rule: %s (%s)
Description: %s
Requirement: %s

CRITICAL RULES:
1. Base your judgment ONLY on the excerpts provided. Do not use outside knowledge of typical contracts.
2. Every citation quote MUST be copied verbatim from an excerpt, with its page anchor.
3. If the excerpts do not contain enough evidence, answer "unknown" — never guess.

Excerpts:
`, req.Rule.Name, req.Rule.RuleID, req.Rule.Description, req.Rule.RuleText)

	for i, e := range req.Excerpts {
		if e.Page > 0 {
			fmt.Fprintf(&b, "%d. %s [[page=%d]]\n", i+1, e.Text, e.Page)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, e.Text)
		}
	}
	if len(req.Excerpts) == 0 {
		b.WriteString("(no relevant excerpts were found)\n")
	}

	fmt.Fprintf(&b, `
Respond with exactly one JSON object:
{
  "rule_id": "%s",
  "status": "compliant" | "non_compliant" | "not_applicable" | "unknown",
  "rationale": "one or two sentences explaining the judgment",
  "confidence": 0.0-1.0,
  "citations": [{"quote": "verbatim excerpt text", "anchor": "[[page=N]]"}]
}
`, req.Rule.RuleID)

	if req.CorrectiveHint != "" {
		fmt.Fprintf(&b, "\nIMPORTANT: your previous response was rejected: %s\n", req.CorrectiveHint)
	}
	return b.String()
}
