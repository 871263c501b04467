package model

// Status is the compliance verdict for a rule or question
type Status string

const (
	StatusCompliant     Status = "compliant"
	StatusNonCompliant  Status = "non_compliant"
	StatusNotApplicable Status = "not_applicable"
	StatusUnknown       Status = "unknown"
)

// ValidStatus reports whether s is one of the four allowed verdicts
func ValidStatus(s Status) bool {
	switch s {
	case StatusCompliant, StatusNonCompliant, StatusNotApplicable, StatusUnknown:
		return true
	}
	return false
}

// ProximityRule requires two terms to appear within a maximum word distance
type ProximityRule struct {
	Terms       []string `json:"terms" yaml:"terms"`
	MaxDistance int      `json:"max_distance" yaml:"max_distance"`
}

// DeterministicChecks are the pattern checks that can resolve a rule without a model
type DeterministicChecks struct {
	RequiredKeywords  []string        `json:"required_keywords,omitempty" yaml:"required_keywords,omitempty"`
	ForbiddenKeywords []string        `json:"forbidden_keywords,omitempty" yaml:"forbidden_keywords,omitempty"`
	RegexPatterns     []string        `json:"regex_patterns,omitempty" yaml:"regex_patterns,omitempty"`
	ProximityRules    []ProximityRule `json:"proximity_rules,omitempty" yaml:"proximity_rules,omitempty"`
	SectionHints      []string        `json:"section_hints,omitempty" yaml:"section_hints,omitempty"`
}

// EvidenceRequirements define the evidence policy for a rule's verdict
type EvidenceRequirements struct {
	MinCitations        int  `json:"min_citations" yaml:"min_citations"`
	RequirePageAnchors  bool `json:"require_page_anchors" yaml:"require_page_anchors"`
	MaxCitationDistance int  `json:"max_citation_distance,omitempty" yaml:"max_citation_distance,omitempty"`
	RequireExactQuotes  bool `json:"require_exact_quotes" yaml:"require_exact_quotes"`
}

// ComplianceLevels carry human descriptions of what each status means for a rule
type ComplianceLevels struct {
	Compliant     string `json:"compliant,omitempty" yaml:"compliant,omitempty"`
	NonCompliant  string `json:"non_compliant,omitempty" yaml:"non_compliant,omitempty"`
	NotApplicable string `json:"not_applicable,omitempty" yaml:"not_applicable,omitempty"`
	Unknown       string `json:"unknown,omitempty" yaml:"unknown,omitempty"`
}

// Rule is a single compliance rule loaded from the rules file.
// Rules are immutable during a run.
type Rule struct {
	RuleID              string               `json:"rule_id" yaml:"rule_id"`
	Name                string               `json:"name" yaml:"name"`
	Category            string               `json:"category,omitempty" yaml:"category,omitempty"`
	Priority            string               `json:"priority,omitempty" yaml:"priority,omitempty"`
	Description         string               `json:"description,omitempty" yaml:"description,omitempty"`
	RuleText            string               `json:"rule_text" yaml:"rule_text"`
	Keywords            []string             `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Exceptions          []string             `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
	DefaultStatus       Status               `json:"default_status,omitempty" yaml:"default_status,omitempty"`
	DeterministicChecks DeterministicChecks  `json:"deterministic_checks,omitempty" yaml:"deterministic_checks,omitempty"`
	EvidenceRequirements EvidenceRequirements `json:"evidence_requirements" yaml:"evidence_requirements"`
	ComplianceLevels    ComplianceLevels     `json:"compliance_levels,omitempty" yaml:"compliance_levels,omitempty"`
	Enabled             bool                 `json:"enabled" yaml:"enabled"`
}

// DefaultEvidenceRequirements returns the policy applied when a rule omits one
func DefaultEvidenceRequirements() EvidenceRequirements {
	return EvidenceRequirements{
		MinCitations:        1,
		RequirePageAnchors:  true,
		MaxCitationDistance: 500,
		RequireExactQuotes:  true,
	}
}
