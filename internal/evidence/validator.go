package evidence

import (
	"fmt"
	"sync"

	"github.com/clausecheck/clausecheck/internal/anchor"
	"github.com/clausecheck/clausecheck/internal/citation"
	"github.com/clausecheck/clausecheck/internal/model"
)

const (
	minRationaleLength = 20
	lateDocumentRatio  = 0.8

	errorPenalty   = 0.1
	warningPenalty = 0.05
)

// Stats counts validator activity across a run
type Stats struct {
	TotalValidations int `json:"total_validations"`
	ValidResults     int `json:"valid_results"`
	InvalidResults   int `json:"invalid_results"`
	MissingCitations int `json:"missing_citations"`
	InvalidAnchors   int `json:"invalid_anchors"`
}

// Validator checks that compliance results carry the evidence their rules
// demand, and enforces downgrades when they don't
type Validator struct {
	strictMode bool
	manager    *citation.Manager

	mu    sync.Mutex
	stats Stats
}

// NewValidator creates a validator. In strict mode a definite verdict
// without citations is invalid.
func NewValidator(strictMode bool, manager *citation.Manager) *Validator {
	if manager == nil {
		manager = citation.NewManager()
	}
	return &Validator{strictMode: strictMode, manager: manager}
}

// ValidateComplianceResult checks citation count, locatability, and page
// anchors against the rule's evidence requirements, and computes an
// evidence confidence. The validation is attached to the result.
func (v *Validator) ValidateComplianceResult(result *model.ComplianceResult, rule model.Rule, documentText string, index *anchor.Index) model.EvidenceValidationResult {
	v.mu.Lock()
	v.stats.TotalValidations++
	v.mu.Unlock()

	validation := model.EvidenceValidationResult{
		IsValid: true,
		RuleID:  result.RuleID,
		Status:  result.Status,
	}
	requirements := rule.EvidenceRequirements

	v.checkCitationCount(result, requirements, &validation)
	v.checkCitations(result.Citations, documentText, index, requirements, &validation)
	v.checkPageAnchors(result.Citations, requirements, &validation)
	v.checkCompleteness(result, &validation)

	validation.Confidence = evidenceConfidence(validation)

	v.mu.Lock()
	if validation.IsValid {
		v.stats.ValidResults++
	} else {
		v.stats.InvalidResults++
	}
	v.mu.Unlock()

	result.Validation = &validation
	return validation
}

// checkCitationCount enforces the minimum-citation gate. An unknown verdict
// with no citations is exempt: not finding evidence is exactly what unknown
// means.
func (v *Validator) checkCitationCount(result *model.ComplianceResult, requirements model.EvidenceRequirements, validation *model.EvidenceValidationResult) {
	validation.CitationCount = len(result.Citations)

	if result.Status == model.StatusUnknown {
		return
	}
	if validation.CitationCount < requirements.MinCitations {
		validation.Errors = append(validation.Errors,
			fmt.Sprintf("insufficient citations: found %d, required %d", validation.CitationCount, requirements.MinCitations))
		validation.IsValid = false
		v.mu.Lock()
		v.stats.MissingCitations++
		v.mu.Unlock()
	}
}

func (v *Validator) checkCitations(citations []model.Citation, documentText string, index *anchor.Index, requirements model.EvidenceRequirements, validation *model.EvidenceValidationResult) {
	for _, c := range citations {
		if c.Type == model.CitationNotFound {
			validation.ValidCitations++
			continue
		}
		cv := v.manager.ValidateCitation(c, documentText, index, requirements.RequireExactQuotes)
		if cv.IsValid {
			validation.ValidCitations++
		} else {
			for _, err := range cv.Errors {
				validation.Errors = append(validation.Errors, "citation error: "+err)
			}
			validation.IsValid = false
		}
		validation.Warnings = append(validation.Warnings, cv.Warnings...)

		if requirements.MaxCitationDistance > 0 && float64(c.StartChar) > float64(len(documentText))*lateDocumentRatio {
			validation.Warnings = append(validation.Warnings,
				fmt.Sprintf("citation appears late in document (position %d)", c.StartChar))
		}
	}
}

func (v *Validator) checkPageAnchors(citations []model.Citation, requirements model.EvidenceRequirements, validation *model.EvidenceValidationResult) {
	if !requirements.RequirePageAnchors {
		return
	}
	for _, c := range citations {
		if c.Type == model.CitationNotFound {
			continue
		}
		if c.PageNumber <= 0 {
			validation.MissingAnchors++
			validation.Errors = append(validation.Errors,
				fmt.Sprintf("invalid or missing page anchor for citation %d", c.CitationID))
			validation.IsValid = false
			v.mu.Lock()
			v.stats.InvalidAnchors++
			v.mu.Unlock()
		}
	}
}

// checkCompleteness flags definite verdicts with no evidence (strict mode)
// and thin rationales
func (v *Validator) checkCompleteness(result *model.ComplianceResult, validation *model.EvidenceValidationResult) {
	if result.Status != model.StatusUnknown && len(result.Citations) == 0 && v.strictMode {
		validation.Errors = append(validation.Errors,
			fmt.Sprintf("no evidence provided for %s verdict", result.Status))
		validation.IsValid = false
	}
	if len(result.Rationale) < minRationaleLength {
		validation.Warnings = append(validation.Warnings, "rationale is too brief or missing")
	}
	if len(result.Attribution) == 0 {
		validation.Warnings = append(validation.Warnings, "missing attribution information")
	}
}

// evidenceConfidence averages citation validity, anchor completeness, and an
// error/warning quality score. Invalid evidence is always zero.
func evidenceConfidence(validation model.EvidenceValidationResult) float64 {
	if !validation.IsValid {
		return 0
	}

	var factors []float64
	if validation.CitationCount > 0 {
		factors = append(factors, float64(validation.ValidCitations)/float64(validation.CitationCount))
		factors = append(factors, 1.0-float64(validation.MissingAnchors)/float64(validation.CitationCount))
	}
	quality := 1.0 - float64(len(validation.Errors))*errorPenalty - float64(len(validation.Warnings))*warningPenalty
	if quality < 0 {
		quality = 0
	}
	factors = append(factors, quality)

	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	if len(factors) == 0 {
		return 0.5
	}
	return sum / float64(len(factors))
}

// Enforce downgrades results whose evidence cannot back them: a definite
// verdict without citations becomes unknown in strict mode, and missing
// required anchors halve the confidence.
func (v *Validator) Enforce(result *model.ComplianceResult, rule model.Rule) {
	if result.Status != model.StatusUnknown && len(result.Citations) == 0 && v.strictMode {
		result.Rationale = "Changed to unknown due to lack of evidence. Original: " + result.Rationale
		result.Status = model.StatusUnknown
		result.Confidence = 0
	}

	if !rule.EvidenceRequirements.RequirePageAnchors {
		return
	}
	missing := 0
	for _, c := range result.Citations {
		if c.Type != model.CitationNotFound && c.PageNumber <= 0 {
			missing++
		}
	}
	if missing > 0 {
		result.Confidence *= 0.5
	}
}

// Statistics returns a snapshot of validator counters
func (v *Validator) Statistics() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}
