package critic

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clausecheck/clausecheck/internal/anchor"
	"github.com/clausecheck/clausecheck/internal/model"
)

const (
	minConvertedLength = 100
	garbledRatioLimit  = 0.05
	minPageCoverage    = 0.5
	maxUnknownRatio    = 0.5
	lowConfidenceFloor = 0.3
)

// NewConversionGate validates converted document text: length, page
// anchors, and garbled-character density
func NewConversionGate(maxReruns int, strict bool) *Gate {
	policy := Policy{HighsForHigh: 2, MediumsForMedium: 3, StrictMode: strict}
	return NewGate("conversion", policy, maxReruns, checkConversion)
}

func checkConversion(in Input) ([]Issue, map[string]float64, map[string]string) {
	var issues []Issue
	metrics := map[string]float64{}
	text := in.DocumentText

	if len(text) < minConvertedLength {
		issues = append(issues, Issue{
			Type:     "empty_conversion",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("converted text is %d chars, expected at least %d", len(text), minConvertedLength),
		})
		return issues, metrics, map[string]string{"force_ocr": "true"}
	}

	index := anchor.Build(text)
	metrics["pages"] = float64(index.Pages())
	if !index.Anchored() || (index.Pages() <= 1 && len(text) > 10000) {
		issues = append(issues, Issue{
			Type:     "missing_page_anchors",
			Severity: SeverityMedium,
			Message:  "document carries no usable page anchors",
		})
	}
	for range index.Warnings() {
		issues = append(issues, Issue{
			Type:     "anchor_warning",
			Severity: SeverityLow,
			Message:  "page anchors out of order or duplicated",
		})
	}

	garbled := strings.Count(text, string(utf8.RuneError))
	ratio := float64(garbled) / float64(len(text))
	metrics["garbled_ratio"] = ratio
	if ratio > garbledRatioLimit {
		issues = append(issues, Issue{
			Type:     "garbled_text",
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("%.1f%% of characters are replacement runes", ratio*100),
		})
	}

	return issues, metrics, map[string]string{"force_ocr": "true"}
}

// NewCoverageGate validates segmentation coverage: sentences exist and are
// attributable to pages
func NewCoverageGate(maxReruns int, strict bool) *Gate {
	policy := Policy{HighsForHigh: 1, MediumsForMedium: 2, StrictMode: strict}
	return NewGate("coverage", policy, maxReruns, checkCoverage)
}

func checkCoverage(in Input) ([]Issue, map[string]float64, map[string]string) {
	var issues []Issue
	metrics := map[string]float64{"sentences": float64(len(in.Sentences))}

	if len(in.Sentences) == 0 {
		issues = append(issues, Issue{
			Type:     "no_sentences",
			Severity: SeverityCritical,
			Message:  "segmentation produced no sentences",
		})
		return issues, metrics, map[string]string{"heuristic_anchors": "true"}
	}

	withPage := 0
	for _, s := range in.Sentences {
		if s.PageNumber > 0 {
			withPage++
		}
	}
	coverage := float64(withPage) / float64(len(in.Sentences))
	metrics["page_coverage"] = coverage
	if coverage < minPageCoverage {
		issues = append(issues, Issue{
			Type:     "low_page_coverage",
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("only %.0f%% of sentences map to a page", coverage*100),
		})
	}

	return issues, metrics, map[string]string{"heuristic_anchors": "true"}
}

// NewCompletenessGate validates that every rule got a result and that the
// unknown ratio is acceptable. This is the one stage where a medium
// severity triggers a rerun in strict mode.
func NewCompletenessGate(maxReruns int, strict bool) *Gate {
	policy := Policy{HighsForHigh: 1, MediumsForMedium: 1, StrictMode: strict, RerunOnMedium: true}
	return NewGate("completeness", policy, maxReruns, checkCompleteness)
}

func checkCompleteness(in Input) ([]Issue, map[string]float64, map[string]string) {
	var issues []Issue
	metrics := map[string]float64{"results": float64(len(in.Results))}
	retry := map[string]string{
		"enable_fallback_retrieval": "true",
		"confidence_threshold":      "0.5",
	}

	if in.RulesTotal > 0 && len(in.Results) < in.RulesTotal {
		issues = append(issues, Issue{
			Type:     "missing_results",
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("%d of %d rules have no result", in.RulesTotal-len(in.Results), in.RulesTotal),
		})
	}
	if len(in.Results) == 0 {
		return issues, metrics, retry
	}

	unknown := 0
	lowConfidence := 0
	for _, r := range in.Results {
		if r.Status == model.StatusUnknown {
			unknown++
		}
		if r.Confidence > 0 && r.Confidence < lowConfidenceFloor {
			lowConfidence++
		}
	}
	unknownRatio := float64(unknown) / float64(len(in.Results))
	metrics["unknown_ratio"] = unknownRatio
	if unknownRatio > maxUnknownRatio {
		issues = append(issues, Issue{
			Type:     "excessive_unknowns",
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%.0f%% of results are unknown", unknownRatio*100),
		})
	}
	if lowConfidence > 0 {
		issues = append(issues, Issue{
			Type:     "low_confidence_results",
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%d results below confidence %.1f", lowConfidence, lowConfidenceFloor),
		})
	}

	return issues, metrics, retry
}

// NewCitationGate validates that definite verdicts carry located, anchored
// citations
func NewCitationGate(maxReruns int, strict bool) *Gate {
	policy := Policy{HighsForHigh: 2, MediumsForMedium: 4, StrictMode: strict}
	return NewGate("citation", policy, maxReruns, checkCitations)
}

func checkCitations(in Input) ([]Issue, map[string]float64, map[string]string) {
	var issues []Issue
	uncited := 0
	unanchored := 0
	total := 0

	for _, r := range in.Results {
		if r.Status != model.StatusUnknown && len(r.Citations) == 0 {
			uncited++
			issues = append(issues, Issue{
				Type:     "uncited_verdict",
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("rule %s: %s verdict with no citations", r.RuleID, r.Status),
			})
		}
		for _, c := range r.Citations {
			total++
			if c.Type != model.CitationNotFound && c.PageNumber <= 0 {
				unanchored++
				issues = append(issues, Issue{
					Type:     "missing_anchor",
					Severity: SeverityMedium,
					Message:  fmt.Sprintf("rule %s: citation %d has no page anchor", r.RuleID, c.CitationID),
				})
			}
		}
	}

	metrics := map[string]float64{
		"citations":  float64(total),
		"uncited":    float64(uncited),
		"unanchored": float64(unanchored),
	}
	return issues, metrics, map[string]string{"retry_citations": "true"}
}
