package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clausecheck/clausecheck/internal/model"
)

type stubProvider struct {
	responses []string
	calls     int
	err       error
	prompts   []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) IsAvailable(context.Context) bool { return true }

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	resp := s.responses[s.calls]
	if s.calls < len(s.responses)-1 {
		s.calls++
	}
	return resp, nil
}

func testRule() model.Rule {
	return model.Rule{
		RuleID:   "liability_cap",
		Name:     "Liability cap",
		RuleText: "Liability must be capped at fees paid",
	}
}

const validResponse = `{
  "rule_id": "liability_cap",
  "status": "compliant",
  "rationale": "Liability is capped at twelve months of fees.",
  "confidence": 0.9,
  "citations": [{"quote": "Liability of each party is capped", "anchor": "[[page=2]]"}]
}`

func TestParseJudgment_Valid(t *testing.T) {
	judgment, err := ParseJudgment(validResponse, "liability_cap")
	if err != nil {
		t.Fatalf("ParseJudgment failed: %v", err)
	}
	if judgment.Status != model.StatusCompliant {
		t.Errorf("Expected compliant, got %q", judgment.Status)
	}
	if len(judgment.Quotes) != 1 || judgment.Quotes[0].Anchor != "[[page=2]]" {
		t.Errorf("Unexpected quotes: %v", judgment.Quotes)
	}
}

func TestParseJudgment_ToleratesSurroundingProse(t *testing.T) {
	raw := "Here is my analysis:\n" + validResponse + "\nLet me know if you need more."
	judgment, err := ParseJudgment(raw, "liability_cap")
	if err != nil {
		t.Fatalf("ParseJudgment failed: %v", err)
	}
	if judgment.Status != model.StatusCompliant {
		t.Errorf("Expected compliant, got %q", judgment.Status)
	}
}

func TestParseJudgment_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no JSON", "I think the contract is compliant."},
		{"bad status", `{"status": "maybe", "rationale": "unsure", "confidence": 0.5}`},
		{"empty rationale", `{"status": "compliant", "rationale": "", "confidence": 0.5}`},
		{"confidence out of range", `{"status": "compliant", "rationale": "fine", "confidence": 1.5}`},
	}
	for _, tt := range tests {
		if _, err := ParseJudgment(tt.raw, "r"); err == nil {
			t.Errorf("%s: expected rejection", tt.name)
		}
	}
}

func TestJudge_CorrectiveRetry(t *testing.T) {
	provider := &stubProvider{responses: []string{
		"The contract looks compliant to me.", // no JSON
		validResponse,
	}}
	j := NewJudge(provider, 3, 0)

	judgment, err := j.Judge(context.Background(), Request{Rule: testRule()})
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if judgment.Status != model.StatusCompliant {
		t.Errorf("Expected compliant after retry, got %q", judgment.Status)
	}
	if len(provider.prompts) != 2 {
		t.Fatalf("Expected 2 attempts, got %d", len(provider.prompts))
	}
	if !strings.Contains(provider.prompts[1], "previous response was rejected") {
		t.Error("Expected corrective hint in retry prompt")
	}
	if provider.prompts[0] == provider.prompts[1] {
		t.Error("Retry prompt must differ from the first")
	}
}

func TestJudge_ExhaustionYieldsUnknown(t *testing.T) {
	provider := &stubProvider{responses: []string{"not json at all"}}
	j := NewJudge(provider, 2, 0)

	judgment, err := j.Judge(context.Background(), Request{Rule: testRule()})
	if err != nil {
		t.Fatalf("Exhaustion must not be an error: %v", err)
	}
	if judgment.Status != model.StatusUnknown {
		t.Errorf("Expected unknown after exhaustion, got %q", judgment.Status)
	}
	if judgment.Attribution["method"] != "model_judgment_exhausted" {
		t.Errorf("Unexpected attribution: %v", judgment.Attribution)
	}
}

func TestJudge_ProviderErrorPropagates(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	j := NewJudge(provider, 2, 0)

	if _, err := j.Judge(context.Background(), Request{Rule: testRule()}); err == nil {
		t.Error("Expected transport error to propagate")
	}
}

func TestBuildPrompt_IncludesExcerptsAndAnchors(t *testing.T) {
	prompt := BuildPrompt(Request{
		Rule: testRule(),
		Excerpts: []Excerpt{
			{Text: "Liability of each party is capped.", Page: 2},
			{Text: "Unanchored context."},
		},
	})
	if !strings.Contains(prompt, "Liability of each party is capped. [[page=2]]") {
		t.Error("Expected anchored excerpt in prompt")
	}
	if !strings.Contains(prompt, "liability_cap") {
		t.Error("Expected rule ID in prompt")
	}
	if !strings.Contains(prompt, `"unknown"`) {
		t.Error("Expected unknown option in response contract")
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := NewProvider(model.LLMConfig{}); p != nil || err != nil {
		t.Errorf("Empty provider must disable judging, got %v %v", p, err)
	}
	if _, err := NewProvider(model.LLMConfig{Provider: "carrier-pigeon"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
	p, err := NewProvider(model.LLMConfig{Provider: "ollama", Model: "llama3.1:8b"})
	if err != nil || p == nil || p.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %v %v", p, err)
	}
}
