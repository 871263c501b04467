package score

import (
	"testing"

	"github.com/clausecheck/clausecheck/internal/model"
)

func compliantResult(ruleID string) model.ComplianceResult {
	return model.ComplianceResult{
		RuleID:     ruleID,
		Status:     model.StatusCompliant,
		Confidence: 0.9,
		Citations: []model.Citation{
			{Type: model.CitationDirectQuote, PageNumber: 2, SourceText: "Liability is capped at fees paid."},
		},
		Validation: &model.EvidenceValidationResult{IsValid: true},
	}
}

func TestCalculate_FullyCompliant(t *testing.T) {
	scorer := NewScorer()
	results := []model.ComplianceResult{
		compliantResult("liability_cap"),
		compliantResult("termination_notice"),
	}

	score := scorer.Calculate(results, 2)

	// 10 coverage + 40 verdicts + 30 evidence + 18 confidence
	if score.Index != 98 {
		t.Errorf("Expected index 98, got %d", score.Index)
	}
	if score.Confidence != "high" {
		t.Errorf("Expected high confidence, got %s", score.Confidence)
	}
	if len(score.Signals) != 4 {
		t.Errorf("Expected 4 signals, got %d", len(score.Signals))
	}
}

func TestCalculate_NoRules(t *testing.T) {
	scorer := NewScorer()

	score := scorer.Calculate(nil, 0)

	if score.Index != 0 {
		t.Errorf("Expected index 0, got %d", score.Index)
	}
	if score.Confidence != "low" {
		t.Errorf("Expected low confidence, got %s", score.Confidence)
	}

	found := false
	for _, sig := range score.Signals {
		if sig.Type == model.SignalRuleCoverage && sig.Severity == model.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Error("Expected critical rule_coverage signal when no rules evaluated")
	}
}

func TestCalculate_NonCompliantLowersVerdictScore(t *testing.T) {
	scorer := NewScorer()
	bad := compliantResult("data_retention")
	bad.Status = model.StatusNonCompliant
	results := []model.ComplianceResult{compliantResult("liability_cap"), bad}

	score := scorer.Calculate(results, 2)

	var verdicts *model.Signal
	for i := range score.Signals {
		if score.Signals[i].Type == model.SignalVerdicts {
			verdicts = &score.Signals[i]
		}
	}
	if verdicts == nil {
		t.Fatal("Expected verdicts signal")
	}
	if verdicts.Severity != model.SeverityWarning {
		t.Errorf("Expected warning severity with a non-compliant verdict, got %s", verdicts.Severity)
	}
	if got := verdicts.Data["score"].(int); got != 20 {
		t.Errorf("Expected verdict score 20 for half compliant, got %d", got)
	}
}

func TestCalculate_ExcessiveUnknownsPenalty(t *testing.T) {
	scorer := NewScorer()
	results := []model.ComplianceResult{
		compliantResult("liability_cap"),
		{RuleID: "insurance", Status: model.StatusUnknown, Confidence: 0.2},
		{RuleID: "audit_rights", Status: model.StatusUnknown, Confidence: 0.2},
	}

	score := scorer.Calculate(results, 3)

	found := false
	for _, sig := range score.Signals {
		if sig.Type == model.SignalUnknowns {
			found = true
			if sig.Severity != model.SeverityCritical {
				t.Errorf("Expected critical unknowns signal, got %s", sig.Severity)
			}
		}
	}
	if !found {
		t.Error("Expected excessive_unknowns signal when most results are unknown")
	}

	withoutPenalty := scorer.Calculate(results[:1], 1)
	if score.Index >= withoutPenalty.Index {
		t.Errorf("Expected penalized index below %d, got %d", withoutPenalty.Index, score.Index)
	}
}

func TestCalculate_UnevidencedVerdict(t *testing.T) {
	scorer := NewScorer()
	bare := model.ComplianceResult{
		RuleID:     "liability_cap",
		Status:     model.StatusCompliant,
		Confidence: 0.9,
		Citations: []model.Citation{
			{Type: model.CitationNotFound, SourceText: "somewhere in the document"},
		},
	}

	score := scorer.Calculate([]model.ComplianceResult{bare}, 1)

	var evidence *model.Signal
	for i := range score.Signals {
		if score.Signals[i].Type == model.SignalEvidenceQuality {
			evidence = &score.Signals[i]
		}
	}
	if evidence == nil {
		t.Fatal("Expected evidence_quality signal")
	}
	if got := evidence.Data["score"].(int); got != 0 {
		t.Errorf("Expected evidence score 0 without anchored citations, got %d", got)
	}
	if evidence.Severity != model.SeverityCritical {
		t.Errorf("Expected critical evidence signal, got %s", evidence.Severity)
	}
}

func TestCalculate_PartialCoverage(t *testing.T) {
	scorer := NewScorer()
	results := []model.ComplianceResult{compliantResult("liability_cap")}

	score := scorer.Calculate(results, 4)

	var coverage *model.Signal
	for i := range score.Signals {
		if score.Signals[i].Type == model.SignalRuleCoverage {
			coverage = &score.Signals[i]
		}
	}
	if coverage == nil {
		t.Fatal("Expected rule_coverage signal")
	}
	if coverage.Severity != model.SeverityWarning {
		t.Errorf("Expected warning severity for partial coverage, got %s", coverage.Severity)
	}
	if got := coverage.Data["score"].(int); got != 2 {
		t.Errorf("Expected coverage score 2 for 1 of 4 rules, got %d", got)
	}
}

func TestDetermineConfidence(t *testing.T) {
	scorer := NewScorer()
	results := []model.ComplianceResult{compliantResult("liability_cap")}

	tests := []struct {
		index    int
		expected string
	}{
		{90, "high"},
		{75, "high"},
		{60, "medium"},
		{50, "medium"},
		{30, "low"},
		{0, "low"},
	}

	for _, tt := range tests {
		if got := scorer.determineConfidence(tt.index, results); got != tt.expected {
			t.Errorf("determineConfidence(%d) = %s, expected %s", tt.index, got, tt.expected)
		}
	}
}
