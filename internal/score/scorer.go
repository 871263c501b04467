package score

import (
	"fmt"
	"math"

	"github.com/clausecheck/clausecheck/internal/model"
)

// Scorer calculates the document compliance index and its diagnostic signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate computes the 0-100 compliance index from per-rule results.
// Components: rule coverage (0-10), verdict distribution (0-40), evidence
// quality (0-30), and result confidence (0-20). An excessive unknown ratio
// applies a flat penalty.
func (s *Scorer) Calculate(results []model.ComplianceResult, rulesTotal int) model.Score {
	var signals []model.Signal

	coverageScore, coverageSignal := s.calculateCoverage(results, rulesTotal)
	signals = append(signals, coverageSignal)

	verdictScore, verdictSignal := s.calculateVerdicts(results)
	signals = append(signals, verdictSignal)

	evidenceScore, evidenceSignal := s.calculateEvidence(results)
	signals = append(signals, evidenceSignal)

	confidenceScore, confidenceSignal := s.calculateConfidence(results)
	signals = append(signals, confidenceSignal)

	totalScore := coverageScore + verdictScore + evidenceScore + confidenceScore

	if penalty, signal := s.detectExcessiveUnknowns(results); penalty > 0 {
		signals = append(signals, signal)
		totalScore -= penalty
		if totalScore < 0 {
			totalScore = 0
		}
	}

	return model.Score{
		Index:      totalScore,
		Confidence: s.determineConfidence(totalScore, results),
		Signals:    signals,
	}
}

// calculateCoverage scores how many rules produced a result (0-10 points)
func (s *Scorer) calculateCoverage(results []model.ComplianceResult, rulesTotal int) (int, model.Signal) {
	if rulesTotal == 0 {
		return 0, model.Signal{
			Type:        model.SignalRuleCoverage,
			Severity:    model.SeverityCritical,
			Description: "No rules were evaluated",
		}
	}

	ratio := float64(len(results)) / float64(rulesTotal)
	points := int(math.Min(ratio*10, 10))

	severity := model.SeverityInfo
	if ratio < 1.0 {
		severity = model.SeverityWarning
	}

	return points, model.Signal{
		Type:        model.SignalRuleCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d rules evaluated", len(results), rulesTotal),
		Data: map[string]interface{}{
			"results": len(results),
			"rules":   rulesTotal,
			"score":   points,
		},
	}
}

// calculateVerdicts scores the verdict distribution (0-40 points). Only
// applicable rules count: compliant verdicts earn points, unknowns dilute
// them.
func (s *Scorer) calculateVerdicts(results []model.ComplianceResult) (int, model.Signal) {
	applicable := 0
	compliant := 0
	nonCompliant := 0
	for _, r := range results {
		if r.Status == model.StatusNotApplicable {
			continue
		}
		applicable++
		switch r.Status {
		case model.StatusCompliant:
			compliant++
		case model.StatusNonCompliant:
			nonCompliant++
		}
	}

	if applicable == 0 {
		return 0, model.Signal{
			Type:        model.SignalVerdicts,
			Severity:    model.SeverityWarning,
			Description: "No applicable rules",
		}
	}

	ratio := float64(compliant) / float64(applicable)
	points := int(math.Min(ratio*40, 40))

	severity := model.SeverityInfo
	if nonCompliant > 0 {
		severity = model.SeverityWarning
	}
	if ratio < 0.5 {
		severity = model.SeverityCritical
	}

	return points, model.Signal{
		Type:        model.SignalVerdicts,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d applicable rules compliant, %d non-compliant", compliant, applicable, nonCompliant),
		Data: map[string]interface{}{
			"applicable":    applicable,
			"compliant":     compliant,
			"non_compliant": nonCompliant,
			"ratio":         ratio,
			"score":         points,
		},
	}
}

// calculateEvidence scores how well definite verdicts are evidenced
// (0-30 points): located citations with page anchors and passing validation
func (s *Scorer) calculateEvidence(results []model.ComplianceResult) (int, model.Signal) {
	definite := 0
	evidenced := 0
	for _, r := range results {
		if r.Status == model.StatusUnknown || r.Status == model.StatusNotApplicable {
			continue
		}
		definite++
		if !hasAnchoredCitation(r) {
			continue
		}
		if r.Validation != nil && !r.Validation.IsValid {
			continue
		}
		evidenced++
	}

	if definite == 0 {
		return 0, model.Signal{
			Type:        model.SignalEvidenceQuality,
			Severity:    model.SeverityWarning,
			Description: "No definite verdicts to evidence",
		}
	}

	ratio := float64(evidenced) / float64(definite)
	points := int(math.Min(ratio*30, 30))

	severity := model.SeverityInfo
	if ratio < 1.0 {
		severity = model.SeverityWarning
	}
	if ratio < 0.5 {
		severity = model.SeverityCritical
	}

	return points, model.Signal{
		Type:        model.SignalEvidenceQuality,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d definite verdicts carry anchored, valid evidence", evidenced, definite),
		Data: map[string]interface{}{
			"definite":  definite,
			"evidenced": evidenced,
			"ratio":     ratio,
			"score":     points,
		},
	}
}

// calculateConfidence scores the mean result confidence (0-20 points)
func (s *Scorer) calculateConfidence(results []model.ComplianceResult) (int, model.Signal) {
	if len(results) == 0 {
		return 0, model.Signal{
			Type:        model.SignalConfidence,
			Severity:    model.SeverityWarning,
			Description: "No results",
		}
	}

	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	mean := sum / float64(len(results))
	points := int(math.Min(mean*20, 20))

	severity := model.SeverityInfo
	if mean < 0.5 {
		severity = model.SeverityWarning
	}

	return points, model.Signal{
		Type:        model.SignalConfidence,
		Severity:    severity,
		Description: fmt.Sprintf("Mean result confidence: %.2f", mean),
		Data: map[string]interface{}{
			"mean":  mean,
			"score": points,
		},
	}
}

// detectExcessiveUnknowns applies a flat penalty when more than half the
// results are unknown
func (s *Scorer) detectExcessiveUnknowns(results []model.ComplianceResult) (int, model.Signal) {
	if len(results) == 0 {
		return 0, model.Signal{}
	}
	unknown := 0
	for _, r := range results {
		if r.Status == model.StatusUnknown {
			unknown++
		}
	}
	ratio := float64(unknown) / float64(len(results))
	if ratio <= 0.5 {
		return 0, model.Signal{}
	}
	return 10, model.Signal{
		Type:        model.SignalUnknowns,
		Severity:    model.SeverityCritical,
		Description: fmt.Sprintf("%.0f%% of results are unknown", ratio*100),
		Data: map[string]interface{}{
			"unknown": unknown,
			"total":   len(results),
			"ratio":   ratio,
		},
	}
}

// determineConfidence maps the index and result set onto a confidence level
func (s *Scorer) determineConfidence(index int, results []model.ComplianceResult) string {
	if len(results) == 0 {
		return "low"
	}
	switch {
	case index >= 75:
		return "high"
	case index >= 50:
		return "medium"
	default:
		return "low"
	}
}

func hasAnchoredCitation(r model.ComplianceResult) bool {
	for _, c := range r.Citations {
		if c.Type != model.CitationNotFound && c.PageNumber > 0 {
			return true
		}
	}
	return false
}
