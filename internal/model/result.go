package model

import "time"

// PatternMatch is a positional match found by a deterministic sub-check
type PatternMatch struct {
	Pattern    string  `json:"pattern" yaml:"pattern"`
	Text       string  `json:"matched_text" yaml:"matched_text"`
	Start      int     `json:"start" yaml:"start"`
	End        int     `json:"end" yaml:"end"`
	Page       int     `json:"page,omitempty" yaml:"page,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ProximityMatch records two terms found within the allowed word distance
type ProximityMatch struct {
	Terms       []string `json:"terms" yaml:"terms"`
	Distance    int      `json:"distance" yaml:"distance"`
	MaxDistance int      `json:"max_distance" yaml:"max_distance"`
	Context     string   `json:"context" yaml:"context"`
	Page        int      `json:"page,omitempty" yaml:"page,omitempty"`
}

// DeterministicResult is a pattern-only verdict attempt for a rule
type DeterministicResult struct {
	RuleID           string           `json:"rule_id" yaml:"rule_id"`
	IsConclusive     bool             `json:"is_conclusive" yaml:"is_conclusive"`
	Status           Status           `json:"status,omitempty" yaml:"status,omitempty"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
	KeywordMatches   []PatternMatch   `json:"keyword_matches,omitempty" yaml:"keyword_matches,omitempty"`
	RegexMatches     []PatternMatch   `json:"regex_matches,omitempty" yaml:"regex_matches,omitempty"`
	ProximityMatches []ProximityMatch `json:"proximity_matches,omitempty" yaml:"proximity_matches,omitempty"`
	SectionMatches   []string         `json:"section_matches,omitempty" yaml:"section_matches,omitempty"`
	Rationale        string           `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Judgment is the parsed, schema-validated output of a model call
type Judgment struct {
	RuleID      string            `json:"rule_id" yaml:"rule_id"`
	Status      Status            `json:"status" yaml:"status"`
	Rationale   string            `json:"rationale" yaml:"rationale"`
	Quotes      []JudgmentQuote   `json:"citations,omitempty" yaml:"citations,omitempty"`
	Confidence  float64           `json:"confidence" yaml:"confidence"`
	Attribution map[string]string `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	RawResponse string            `json:"-" yaml:"-"`
}

// JudgmentQuote is a quoted span the model offered as evidence
type JudgmentQuote struct {
	Quote  string `json:"quote" yaml:"quote"`
	Anchor string `json:"anchor" yaml:"anchor"`
}

// EvidenceValidationResult reports whether a result's evidence satisfies policy
type EvidenceValidationResult struct {
	IsValid        bool     `json:"is_valid" yaml:"is_valid"`
	RuleID         string   `json:"rule_id" yaml:"rule_id"`
	Status         Status   `json:"status" yaml:"status"`
	Errors         []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	CitationCount  int      `json:"citation_count" yaml:"citation_count"`
	ValidCitations int      `json:"valid_citations" yaml:"valid_citations"`
	MissingAnchors int      `json:"missing_anchors" yaml:"missing_anchors"`
	Confidence     float64  `json:"confidence" yaml:"confidence"`
}

// RetrievalMeta records how candidates for a rule were selected
type RetrievalMeta struct {
	CandidateCount int  `json:"candidate_count" yaml:"candidate_count"`
	FallbackUsed   bool `json:"fallback_used" yaml:"fallback_used"`
	HybridUsed     bool `json:"hybrid_used" yaml:"hybrid_used"`
}

// ComplianceResult is the final per-rule outcome
type ComplianceResult struct {
	RuleID        string                    `json:"rule_id" yaml:"rule_id"`
	Status        Status                    `json:"status" yaml:"status"`
	Rationale     string                    `json:"rationale" yaml:"rationale"`
	Citations     []Citation                `json:"citations" yaml:"citations"`
	Deterministic *DeterministicResult      `json:"deterministic,omitempty" yaml:"deterministic,omitempty"`
	Judgment      *Judgment                 `json:"llm,omitempty" yaml:"llm,omitempty"`
	Validation    *EvidenceValidationResult `json:"validation,omitempty" yaml:"validation,omitempty"`
	Retrieval     RetrievalMeta             `json:"retrieval" yaml:"retrieval"`
	Confidence    float64                   `json:"confidence" yaml:"confidence"`
	Attribution   map[string]string         `json:"attribution,omitempty" yaml:"attribution,omitempty"`
}

// Report is the complete analysis output for one document
type Report struct {
	Document    string             `json:"document" yaml:"document"`
	AnalyzedAt  time.Time          `json:"analyzed_at" yaml:"analyzed_at"`
	Pages       int                `json:"pages" yaml:"pages"`
	Sentences   int                `json:"sentences" yaml:"sentences"`
	Results     []ComplianceResult `json:"results" yaml:"results"`
	Score       Score              `json:"score" yaml:"score"`
	CriticRuns  []CriticRun        `json:"critic_runs,omitempty" yaml:"critic_runs,omitempty"`
	RulesTotal  int                `json:"rules_total" yaml:"rules_total"`
	Conclusive  int                `json:"deterministic_conclusive" yaml:"deterministic_conclusive"`
	ModelJudged int                `json:"model_judged" yaml:"model_judged"`
	Unknown     int                `json:"unknown" yaml:"unknown"`
}

// Signal severities for the compliance score breakdown
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Signal types emitted by the scorer
const (
	SignalRuleCoverage    = "rule_coverage"
	SignalVerdicts        = "verdicts"
	SignalEvidenceQuality = "evidence_quality"
	SignalConfidence      = "confidence"
	SignalUnknowns        = "excessive_unknowns"
)

// Signal is one diagnostic component of the compliance score
type Signal struct {
	Type        string                 `json:"type" yaml:"type"`
	Severity    string                 `json:"severity" yaml:"severity"`
	Description string                 `json:"description" yaml:"description"`
	Data        map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// Score is the document-level compliance index with its breakdown
type Score struct {
	Index      int      `json:"index" yaml:"index"`
	Confidence string   `json:"confidence" yaml:"confidence"`
	Signals    []Signal `json:"signals,omitempty" yaml:"signals,omitempty"`
}

// CriticRun summarizes one quality-gate invocation in the report
type CriticRun struct {
	Name     string `json:"name" yaml:"name"`
	Attempts int    `json:"attempts" yaml:"attempts"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Severity string `json:"severity" yaml:"severity"`
	Issues   int    `json:"issues" yaml:"issues"`
}
