package evidence

import (
	"strings"
	"testing"

	"github.com/clausecheck/clausecheck/internal/anchor"
	"github.com/clausecheck/clausecheck/internal/model"
)

const testDoc = "[[page=1]]\nThis agreement commences on the effective date.\n\n[[page=2]]\nLiability of each party is capped at the fees paid in the prior twelve months.\n"

func testRule() model.Rule {
	return model.Rule{
		RuleID:               "liability_cap",
		EvidenceRequirements: model.DefaultEvidenceRequirements(),
	}
}

func locatedCitation() model.Citation {
	text := "Liability of each party is capped"
	start := strings.Index(testDoc, text)
	return model.Citation{
		CitationID: 1,
		Type:       model.CitationDirectQuote,
		SourceText: text,
		PageNumber: 2,
		StartChar:  start,
		EndChar:    start + len(text),
		Confidence: 1.0,
	}
}

func TestValidate_ValidResult(t *testing.T) {
	index := anchor.Build(testDoc)
	v := NewValidator(true, nil)
	result := &model.ComplianceResult{
		RuleID:      "liability_cap",
		Status:      model.StatusCompliant,
		Rationale:   "The contract caps liability at fees paid in the prior year.",
		Citations:   []model.Citation{locatedCitation()},
		Attribution: map[string]string{"source": "judge"},
	}

	validation := v.ValidateComplianceResult(result, testRule(), testDoc, index)
	if !validation.IsValid {
		t.Fatalf("Expected valid, errors: %v", validation.Errors)
	}
	if validation.ValidCitations != 1 {
		t.Errorf("Expected 1 valid citation, got %d", validation.ValidCitations)
	}
	if validation.Confidence < 0.9 {
		t.Errorf("Expected high confidence for clean evidence, got %v", validation.Confidence)
	}
	if result.Validation == nil {
		t.Error("Expected validation attached to result")
	}
}

func TestValidate_InsufficientCitations(t *testing.T) {
	v := NewValidator(true, nil)
	result := &model.ComplianceResult{
		RuleID:    "liability_cap",
		Status:    model.StatusCompliant,
		Rationale: "Claimed compliant without citing anything from the document.",
	}

	validation := v.ValidateComplianceResult(result, testRule(), testDoc, nil)
	if validation.IsValid {
		t.Fatal("Expected invalid: compliant with zero citations")
	}
	if validation.Confidence != 0 {
		t.Errorf("Expected zero confidence for invalid evidence, got %v", validation.Confidence)
	}
}

func TestValidate_UnknownExemptFromCitations(t *testing.T) {
	v := NewValidator(true, nil)
	result := &model.ComplianceResult{
		RuleID:    "liability_cap",
		Status:    model.StatusUnknown,
		Rationale: "Could not determine from available evidence in the document.",
	}

	validation := v.ValidateComplianceResult(result, testRule(), testDoc, nil)
	if !validation.IsValid {
		t.Errorf("Unknown with zero citations must be valid, errors: %v", validation.Errors)
	}
}

func TestValidate_MissingAnchor(t *testing.T) {
	index := anchor.Build(testDoc)
	v := NewValidator(true, nil)
	unanchored := locatedCitation()
	unanchored.PageNumber = 0
	result := &model.ComplianceResult{
		RuleID:    "liability_cap",
		Status:    model.StatusCompliant,
		Rationale: "The contract caps liability at fees paid in the prior year.",
		Citations: []model.Citation{unanchored},
	}

	validation := v.ValidateComplianceResult(result, testRule(), testDoc, index)
	if validation.IsValid {
		t.Fatal("Expected invalid for missing required anchor")
	}
	if validation.MissingAnchors != 1 {
		t.Errorf("Expected 1 missing anchor, got %d", validation.MissingAnchors)
	}
}

func TestValidate_UnlocatableCitation(t *testing.T) {
	v := NewValidator(true, nil)
	bogus := model.Citation{
		CitationID: 1,
		Type:       model.CitationDirectQuote,
		SourceText: "this quote does not appear anywhere in the document",
		PageNumber: 1,
	}
	result := &model.ComplianceResult{
		RuleID:    "liability_cap",
		Status:    model.StatusNonCompliant,
		Rationale: "Verdict supported only by a fabricated quotation string.",
		Citations: []model.Citation{bogus},
	}

	validation := v.ValidateComplianceResult(result, testRule(), testDoc, nil)
	if validation.IsValid {
		t.Fatal("Expected invalid for unlocatable citation")
	}
	found := false
	for _, err := range validation.Errors {
		if strings.Contains(err, "not found") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected not-found error, got %v", validation.Errors)
	}
}

func TestEnforce_DowngradesToUnknown(t *testing.T) {
	v := NewValidator(true, nil)
	result := &model.ComplianceResult{
		RuleID:     "liability_cap",
		Status:     model.StatusCompliant,
		Rationale:  "Looks fine.",
		Confidence: 0.9,
	}

	v.Enforce(result, testRule())
	if result.Status != model.StatusUnknown {
		t.Errorf("Expected downgrade to unknown, got %q", result.Status)
	}
	if result.Confidence != 0 {
		t.Errorf("Expected zero confidence after downgrade, got %v", result.Confidence)
	}
	if !strings.HasPrefix(result.Rationale, "Changed to unknown") || !strings.Contains(result.Rationale, "Looks fine.") {
		t.Errorf("Expected rewritten rationale preserving original, got %q", result.Rationale)
	}
}

func TestEnforce_NonStrictKeepsVerdict(t *testing.T) {
	v := NewValidator(false, nil)
	result := &model.ComplianceResult{
		RuleID:     "liability_cap",
		Status:     model.StatusCompliant,
		Confidence: 0.9,
		Citations:  []model.Citation{locatedCitation()},
	}

	v.Enforce(result, testRule())
	if result.Status != model.StatusCompliant {
		t.Errorf("Expected verdict kept, got %q", result.Status)
	}
}

func TestEnforce_HalvesConfidenceForMissingAnchors(t *testing.T) {
	v := NewValidator(true, nil)
	unanchored := locatedCitation()
	unanchored.PageNumber = 0
	result := &model.ComplianceResult{
		RuleID:     "liability_cap",
		Status:     model.StatusCompliant,
		Confidence: 0.8,
		Citations:  []model.Citation{unanchored},
	}

	v.Enforce(result, testRule())
	if result.Status != model.StatusCompliant {
		t.Errorf("Status must not change for anchor gaps, got %q", result.Status)
	}
	if result.Confidence != 0.4 {
		t.Errorf("Expected halved confidence 0.4, got %v", result.Confidence)
	}
}

func TestStatistics(t *testing.T) {
	v := NewValidator(true, nil)
	good := &model.ComplianceResult{
		RuleID:      "liability_cap",
		Status:      model.StatusCompliant,
		Rationale:   "The contract caps liability at fees paid in the prior year.",
		Citations:   []model.Citation{locatedCitation()},
		Attribution: map[string]string{"source": "judge"},
	}
	bad := &model.ComplianceResult{RuleID: "liability_cap", Status: model.StatusCompliant}

	index := anchor.Build(testDoc)
	v.ValidateComplianceResult(good, testRule(), testDoc, index)
	v.ValidateComplianceResult(bad, testRule(), testDoc, index)

	stats := v.Statistics()
	if stats.TotalValidations != 2 || stats.ValidResults != 1 || stats.InvalidResults != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.MissingCitations != 1 {
		t.Errorf("Expected 1 missing-citation count, got %d", stats.MissingCitations)
	}
}
