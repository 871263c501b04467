package deterministic

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/clausecheck/clausecheck/internal/model"
)

const (
	// DefaultConfidenceThreshold is the minimum aggregate confidence for a
	// conclusive verdict
	DefaultConfidenceThreshold = 0.7
	// forbiddenConfidence is assigned when a forbidden keyword short-circuits
	// the check
	forbiddenConfidence = 0.9

	contextRadius    = 50
	headerScanLimit  = 50
	headerMaxLength  = 100
	charsPerWordHint = 5
)

// Checker resolves rules by pattern matching alone, falling through to the
// model judge only when inconclusive
type Checker struct {
	confidenceThreshold float64

	mu    sync.Mutex
	stats Stats
}

// Stats counts checker outcomes across a run
type Stats struct {
	TotalChecks       int `json:"total_checks"`
	ConclusiveResults int `json:"conclusive_results"`
	FallbackToModel   int `json:"fallback_to_model"`
}

// NewChecker creates a checker with the given conclusiveness threshold;
// zero means the default.
func NewChecker(confidenceThreshold float64) *Checker {
	if confidenceThreshold <= 0 {
		confidenceThreshold = DefaultConfidenceThreshold
	}
	return &Checker{confidenceThreshold: confidenceThreshold}
}

// CheckRule runs the keyword, regex, proximity, and section sub-checks for a
// rule and decides whether the combined evidence is conclusive. Invalid regex
// patterns are logged and skipped so one bad rule cannot abort a batch.
func (c *Checker) CheckRule(rule model.Rule, documentText string, sentences []string, pageMap map[int]int) model.DeterministicResult {
	c.mu.Lock()
	c.stats.TotalChecks++
	c.mu.Unlock()

	result := model.DeterministicResult{RuleID: rule.RuleID}
	checks := rule.DeterministicChecks

	result.KeywordMatches = c.checkKeywords(documentText, checks.RequiredKeywords, checks.ForbiddenKeywords, pageMap)
	result.RegexMatches = c.checkRegexPatterns(documentText, checks.RegexPatterns, pageMap)
	if len(checks.ProximityRules) > 0 {
		result.ProximityMatches = c.checkProximityRules(documentText, checks.ProximityRules, pageMap)
	}
	if len(checks.SectionHints) > 0 && len(sentences) > 0 {
		result.SectionMatches = c.checkSectionHints(sentences, checks.SectionHints)
	}

	result = c.evaluateConclusiveness(result, rule)

	c.mu.Lock()
	if result.IsConclusive {
		c.stats.ConclusiveResults++
	} else {
		c.stats.FallbackToModel++
	}
	c.mu.Unlock()
	return result
}

// checkKeywords records every required-keyword occurrence and the first
// occurrence of each forbidden keyword. Forbidden matches carry negative
// confidence.
func (c *Checker) checkKeywords(text string, required, forbidden []string, pageMap map[int]int) []model.PatternMatch {
	textLower := strings.ToLower(text)
	var matches []model.PatternMatch

	for _, keyword := range required {
		keywordLower := strings.ToLower(keyword)
		if keywordLower == "" {
			continue
		}
		start := 0
		for {
			pos := strings.Index(textLower[start:], keywordLower)
			if pos < 0 {
				break
			}
			abs := start + pos
			matches = append(matches, model.PatternMatch{
				Pattern:    "keyword:" + keyword,
				Text:       contextAround(text, abs, abs+len(keyword)),
				Start:      abs,
				End:        abs + len(keyword),
				Page:       pageMap[abs],
				Confidence: 1.0,
			})
			start = abs + 1
		}
	}

	for _, keyword := range forbidden {
		keywordLower := strings.ToLower(keyword)
		if keywordLower == "" {
			continue
		}
		pos := strings.Index(textLower, keywordLower)
		if pos < 0 {
			continue
		}
		matches = append(matches, model.PatternMatch{
			Pattern:    "forbidden:" + keyword,
			Text:       contextAround(text, pos, pos+len(keyword)),
			Start:      pos,
			End:        pos + len(keyword),
			Page:       pageMap[pos],
			Confidence: -1.0,
		})
	}
	return matches
}

func (c *Checker) checkRegexPatterns(text string, patterns []string, pageMap map[int]int) []model.PatternMatch {
	var matches []model.PatternMatch
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?im)" + pattern)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid regex pattern %q: %v\n", pattern, err)
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			matches = append(matches, model.PatternMatch{
				Pattern:    "regex:" + pattern,
				Text:       contextAround(text, loc[0], loc[1]),
				Start:      loc[0],
				End:        loc[1],
				Page:       pageMap[loc[0]],
				Confidence: 0.9,
			})
		}
	}
	return matches
}

// checkProximityRules finds term pairs within the allowed word distance.
// Word distance is approximated from character distance.
func (c *Checker) checkProximityRules(text string, rules []model.ProximityRule, pageMap map[int]int) []model.ProximityMatch {
	textLower := strings.ToLower(text)
	var matches []model.ProximityMatch

	for _, rule := range rules {
		if len(rule.Terms) < 2 {
			continue
		}
		term1 := strings.ToLower(rule.Terms[0])
		term2 := strings.ToLower(rule.Terms[1])
		positions1 := allIndexes(textLower, term1)
		positions2 := allIndexes(textLower, term2)

		for _, pos1 := range positions1 {
			for _, pos2 := range positions2 {
				charDistance := pos2 - pos1
				if charDistance < 0 {
					charDistance = -charDistance
				}
				wordDistance := charDistance / charsPerWordHint
				if wordDistance > rule.MaxDistance {
					continue
				}
				start := pos1
				end := pos2 + len(term2)
				if pos2 < pos1 {
					start = pos2
					end = pos1 + len(term1)
				}
				matches = append(matches, model.ProximityMatch{
					Terms:       rule.Terms,
					Distance:    wordDistance,
					MaxDistance: rule.MaxDistance,
					Context:     contextAround(text, start, end),
					Page:        pageMap[start],
				})
			}
		}
	}
	return matches
}

// checkSectionHints looks for hint terms inside short, header-like sentences
// near the start of the document
func (c *Checker) checkSectionHints(sentences []string, hints []string) []string {
	var matches []string
	limit := len(sentences)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for _, sentence := range sentences[:limit] {
		sentenceLower := strings.ToLower(sentence)
		for _, hint := range hints {
			if strings.Contains(sentenceLower, strings.ToLower(hint)) && len(sentence) < headerMaxLength {
				matches = append(matches, hint)
				break
			}
		}
	}
	return matches
}

// evaluateConclusiveness combines sub-check evidence into an aggregate
// confidence. Forbidden keywords short-circuit to a conclusive non_compliant
// verdict regardless of the aggregate.
func (c *Checker) evaluateConclusiveness(result model.DeterministicResult, rule model.Rule) model.DeterministicResult {
	var factors []float64

	positiveKeywords := 0
	forbiddenFound := false
	for _, m := range result.KeywordMatches {
		if m.Confidence > 0 {
			positiveKeywords++
		} else {
			forbiddenFound = true
		}
	}
	if len(result.KeywordMatches) > 0 {
		required := len(rule.DeterministicChecks.RequiredKeywords)
		if required < 1 {
			required = 1
		}
		factors = append(factors, float64(positiveKeywords)/float64(required))
		if forbiddenFound {
			factors = append(factors, 0.0)
		}
	}
	if len(result.RegexMatches) > 0 {
		density := float64(len(result.RegexMatches)) / 2.0
		if density > 1 {
			density = 1
		}
		factors = append(factors, density*0.9)
	}
	if len(result.ProximityMatches) > 0 {
		density := float64(len(result.ProximityMatches)) / 2.0
		if density > 1 {
			density = 1
		}
		factors = append(factors, density*0.8)
	}
	if len(result.SectionMatches) > 0 {
		factors = append(factors, 0.5)
	}

	if len(factors) > 0 {
		sum := 0.0
		for _, f := range factors {
			sum += f
		}
		result.Confidence = sum / float64(len(factors))
	}

	switch {
	case result.Confidence >= c.confidenceThreshold:
		result.IsConclusive = true
		positive := positiveKeywords + len(result.RegexMatches)
		if positive >= 2 {
			result.Status = model.StatusCompliant
			result.Rationale = fmt.Sprintf("Found %d positive pattern matches indicating compliance", positive)
		} else {
			result.Status = model.StatusNonCompliant
			result.Rationale = "Insufficient evidence of compliance based on pattern matching"
		}
	case forbiddenFound:
		result.IsConclusive = true
		result.Status = model.StatusNonCompliant
		result.Confidence = forbiddenConfidence
		result.Rationale = "Found forbidden keywords indicating non-compliance"
	}
	return result
}

// Statistics returns a snapshot of checker counters
func (c *Checker) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func contextAround(text string, start, end int) string {
	ctxStart := start - contextRadius
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + contextRadius
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	return text[ctxStart:ctxEnd]
}

func allIndexes(text, term string) []int {
	var positions []int
	start := 0
	for {
		pos := strings.Index(text[start:], term)
		if pos < 0 {
			return positions
		}
		positions = append(positions, start+pos)
		start = start + pos + 1
	}
}
