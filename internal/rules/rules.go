package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clausecheck/clausecheck/internal/model"
)

const maxDerivedKeywords = 6

var (
	slugStripPattern    = regexp.MustCompile(`[^a-zA-Z0-9\s_-]`)
	slugCollapsePattern = regexp.MustCompile(`_+`)
	tokenSplitPattern   = regexp.MustCompile(`[\s,/;]+`)
)

// rulesFile is the top-level shape of a rules YAML document
type rulesFile struct {
	Rules []model.Rule `yaml:"rules"`
}

// Load reads, normalizes, and validates a rules file. Invalid rules are
// dropped with per-row issues; one bad rule never aborts the load.
func Load(path string) ([]model.Rule, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes rules YAML and runs normalization and validation
func Parse(data []byte) ([]model.Rule, []string, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse rules yaml: %w", err)
	}

	var valid []model.Rule
	var issues []string
	for i, rule := range file.Rules {
		normalized := Normalize(rule)
		if errs := Validate(normalized); len(errs) > 0 {
			for _, e := range errs {
				issues = append(issues, fmt.Sprintf("rule %d: %s", i+1, e))
			}
			continue
		}
		valid = append(valid, normalized)
	}
	return valid, issues, nil
}

// Normalize fills derived fields: slugified ID, keywords from name and
// description when missing, coerced status and priority, default evidence
// requirements. Normalization is idempotent.
func Normalize(rule model.Rule) model.Rule {
	rule.Name = strings.TrimSpace(rule.Name)
	rule.Description = strings.TrimSpace(rule.Description)
	rule.RuleText = strings.TrimSpace(rule.RuleText)

	if rule.RuleID == "" {
		source := rule.Name
		if source == "" {
			source = truncate(rule.RuleText, 32)
		}
		rule.RuleID = Slugify(source)
	} else {
		rule.RuleID = Slugify(rule.RuleID)
	}

	if len(rule.Keywords) == 0 {
		rule.Keywords = DeriveKeywords(rule.Name, rule.Description)
	}
	rule.DefaultStatus = CoerceStatus(string(rule.DefaultStatus))
	rule.Priority = coercePriority(rule.Priority)

	if rule.EvidenceRequirements == (model.EvidenceRequirements{}) {
		rule.EvidenceRequirements = model.DefaultEvidenceRequirements()
	}
	rule.Enabled = true
	return rule
}

// Validate returns the problems that make a rule unusable
func Validate(rule model.Rule) []string {
	var errs []string
	if rule.Name == "" && rule.RuleText == "" {
		errs = append(errs, "either name or rule_text must be provided")
	}
	if rule.RuleText == "" {
		errs = append(errs, "missing rule_text (the operative constraint)")
	}
	if !model.ValidStatus(rule.DefaultStatus) {
		errs = append(errs, fmt.Sprintf("invalid default status %q", rule.DefaultStatus))
	}
	for _, p := range rule.DeterministicChecks.ProximityRules {
		if len(p.Terms) < 2 {
			errs = append(errs, "proximity rule needs at least two terms")
		}
		if p.MaxDistance <= 0 {
			errs = append(errs, "proximity rule needs a positive max_distance")
		}
	}
	return errs
}

// Slugify turns free text into a stable rule identifier
func Slugify(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "rule"
	}
	text = slugStripPattern.ReplaceAllString(text, "")
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, " ", "_")
	text = strings.ReplaceAll(text, "-", "_")
	text = slugCollapsePattern.ReplaceAllString(text, "_")
	if text == "" {
		return "rule"
	}
	return text
}

// DeriveKeywords extracts simple keywords from a rule's name and
// description: tokens longer than three characters, deduplicated in order,
// capped at six.
func DeriveKeywords(name, description string) []string {
	tokens := tokenSplitPattern.Split(strings.ToLower(strings.TrimSpace(name+" "+description)), -1)
	seen := make(map[string]bool)
	var keywords []string
	for _, t := range tokens {
		if len(t) <= 3 || seen[t] {
			continue
		}
		seen[t] = true
		keywords = append(keywords, t)
		if len(keywords) == maxDerivedKeywords {
			break
		}
	}
	return keywords
}

// CoerceStatus maps common synonyms onto the four allowed verdicts;
// anything unrecognized becomes unknown
func CoerceStatus(value string) model.Status {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "yes":
		v = "compliant"
	case "no":
		v = "non_compliant"
	case "n/a", "na":
		v = "not_applicable"
	case "default", "":
		v = "unknown"
	}
	status := model.Status(v)
	if !model.ValidStatus(status) {
		return model.StatusUnknown
	}
	return status
}

func coercePriority(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "low", "medium", "high":
		return v
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ByID indexes rules for lookup during validation and reporting
func ByID(ruleList []model.Rule) map[string]model.Rule {
	byID := make(map[string]model.Rule, len(ruleList))
	for _, r := range ruleList {
		byID[r.RuleID] = r
	}
	return byID
}
