package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/clausecheck/clausecheck/internal/model"
)

// NewProvider creates a judge provider based on configuration. An empty
// provider name disables model judging (deterministic-only mode).
func NewProvider(config model.LLMConfig) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown judge provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// Judge drives a provider through the strict JSON response contract, with
// bounded corrective-hint retries when the model returns malformed output
type Judge struct {
	provider   Provider
	limiter    *rate.Limiter
	maxRetries int
	verbose    bool
}

// NewJudge creates a judge around a provider. rps throttles model calls;
// zero means no throttling.
func NewJudge(provider Provider, maxRetries int, rps float64) *Judge {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Judge{provider: provider, limiter: limiter, maxRetries: maxRetries}
}

// SetVerbose enables per-attempt logging
func (j *Judge) SetVerbose(v bool) { j.verbose = v }

// Enabled reports whether a provider is configured
func (j *Judge) Enabled() bool { return j != nil && j.provider != nil }

// Judge evaluates one rule against its excerpts. Schema-invalid responses
// are retried with a corrective hint; exhaustion yields an unknown judgment
// rather than an error, so a misbehaving model degrades the result instead
// of aborting the batch.
func (j *Judge) Judge(ctx context.Context, req Request) (*model.Judgment, error) {
	if !j.Enabled() {
		return nil, fmt.Errorf("no judge provider configured")
	}

	var lastErr error
	for attempt := 1; attempt <= j.maxRetries; attempt++ {
		if j.limiter != nil {
			if err := j.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		raw, err := j.provider.Complete(ctx, BuildPrompt(req))
		if err != nil {
			return nil, fmt.Errorf("judge call: %w", err)
		}

		judgment, err := ParseJudgment(raw, req.Rule.RuleID)
		if err == nil {
			judgment.Attribution = map[string]string{
				"method":   "model_judgment",
				"provider": j.provider.Name(),
			}
			return judgment, nil
		}

		lastErr = err
		req.CorrectiveHint = err.Error()
		if j.verbose {
			fmt.Fprintf(os.Stderr, "judge %s: attempt %d rejected for rule %s: %v\n",
				j.provider.Name(), attempt, req.Rule.RuleID, err)
		}
	}

	// Retries exhausted: inconclusive, not fatal
	return &model.Judgment{
		RuleID:     req.Rule.RuleID,
		Status:     model.StatusUnknown,
		Rationale:  fmt.Sprintf("Model output failed schema validation after %d attempts: %v", j.maxRetries, lastErr),
		Confidence: 0,
		Attribution: map[string]string{
			"method":   "model_judgment_exhausted",
			"provider": j.provider.Name(),
		},
	}, nil
}

type judgmentWire struct {
	RuleID     string  `json:"rule_id"`
	Status     string  `json:"status"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
	Citations  []struct {
		Quote  string `json:"quote"`
		Anchor string `json:"anchor"`
	} `json:"citations"`
}

// ParseJudgment extracts and validates the JSON object from model output.
// Surrounding prose is tolerated; the contract is enforced on the object
// itself.
func ParseJudgment(raw, expectedRuleID string) (*model.Judgment, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("response contains no JSON object")
	}

	var wire judgmentWire
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %v", err)
	}

	status := model.Status(strings.ToLower(strings.TrimSpace(wire.Status)))
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("status %q is not one of compliant, non_compliant, not_applicable, unknown", wire.Status)
	}
	if strings.TrimSpace(wire.Rationale) == "" {
		return nil, fmt.Errorf("rationale is empty")
	}
	if wire.Confidence < 0 || wire.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v is outside [0,1]", wire.Confidence)
	}

	judgment := &model.Judgment{
		RuleID:      expectedRuleID,
		Status:      status,
		Rationale:   strings.TrimSpace(wire.Rationale),
		Confidence:  wire.Confidence,
		RawResponse: raw,
	}
	for _, c := range wire.Citations {
		if strings.TrimSpace(c.Quote) == "" {
			continue
		}
		judgment.Quotes = append(judgment.Quotes, model.JudgmentQuote{
			Quote:  strings.TrimSpace(c.Quote),
			Anchor: strings.TrimSpace(c.Anchor),
		})
	}
	return judgment, nil
}
