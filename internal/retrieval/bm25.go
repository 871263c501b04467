package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/clausecheck/clausecheck/internal/model"
)

// Default BM25 parameters
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

// Candidate is a ranked context window selected for a rule or question
type Candidate struct {
	Index           int     `json:"index"`
	Score           float64 `json:"score"`
	Chunk           string  `json:"chunk"`
	SentenceIndices []int   `json:"sentence_indices"`
}

// Tokenize lower-cases text and extracts alphanumeric tokens
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// corpusIndex holds the tokenized corpus with document frequencies
type corpusIndex struct {
	tokenized [][]string
	df        map[string]int
	avgdl     float64
}

func buildIndex(sentences []string) *corpusIndex {
	tokenized := make([][]string, len(sentences))
	df := make(map[string]int)
	total := 0
	for i, s := range sentences {
		terms := Tokenize(s)
		tokenized[i] = terms
		total += len(terms)
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	avgdl := 0.0
	if len(tokenized) > 0 {
		avgdl = float64(total) / float64(len(tokenized))
	}
	return &corpusIndex{tokenized: tokenized, df: df, avgdl: avgdl}
}

func (ci *corpusIndex) score(queryTerms []string, docIdx int, k1, b float64) float64 {
	terms := ci.tokenized[docIdx]
	if len(terms) == 0 {
		return 0
	}
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	n := float64(len(ci.tokenized))
	doclen := float64(len(terms))
	avgdl := ci.avgdl
	if avgdl == 0 {
		avgdl = 1
	}

	score := 0.0
	for _, q := range queryTerms {
		nq, ok := ci.df[q]
		if !ok {
			continue
		}
		idf := math.Log((n-float64(nq)+0.5)/(float64(nq)+0.5) + 1.0)
		f := float64(tf[q])
		denom := f + k1*(1-b+b*(doclen/avgdl))
		if denom == 0 {
			denom = 1
		}
		score += idf * (f * (k1 + 1)) / denom
	}
	return score
}

// BuildQueryTerms assembles deduplicated query tokens from a rule's name,
// description, rule text, and explicit keywords, preserving first-seen order.
func BuildQueryTerms(rule model.Rule) []string {
	var terms []string
	for _, field := range []string{rule.Name, rule.Description, rule.RuleText} {
		terms = append(terms, Tokenize(field)...)
	}
	for _, kw := range rule.Keywords {
		terms = append(terms, Tokenize(kw)...)
	}
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// mergeWindow expands a center sentence into a [center-window, center+window]
// chunk, returning the merged text and the covered indices
func mergeWindow(sentences []string, centerIdx, window int) (string, []int) {
	if window <= 0 {
		return sentences[centerIdx], []int{centerIdx}
	}
	start := centerIdx - window
	if start < 0 {
		start = 0
	}
	end := centerIdx + window
	if end > len(sentences)-1 {
		end = len(sentences) - 1
	}
	indices := make([]int, 0, end-start+1)
	parts := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		indices = append(indices, i)
		parts = append(parts, sentences[i])
	}
	return strings.Join(parts, "\n"), indices
}

// TopKForRule ranks sentences against the rule's query terms with BM25 and
// returns up to topK window-merged candidates. Empty corpus or query terms
// yield an empty result. Ranking is deterministic: ties keep original index
// order.
func TopKForRule(rule model.Rule, sentences []string, topK, window int, k1, b float64) []Candidate {
	if len(sentences) == 0 {
		return nil
	}
	queryTerms := BuildQueryTerms(rule)
	if len(queryTerms) == 0 {
		return nil
	}
	ci := buildIndex(sentences)

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i := range ci.tokenized {
		if s := ci.score(queryTerms, i, k1, b); s > 0 {
			ranked = append(ranked, scored{idx: i, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	limit := topK * (window*2 + 1)
	if limit < topK {
		limit = topK
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}

	var results []Candidate
	seenSpans := make(map[[2]int]struct{})
	for _, sc := range ranked[:limit] {
		chunk, indices := mergeWindow(sentences, sc.idx, window)
		span := [2]int{indices[0], indices[len(indices)-1]}
		if _, ok := seenSpans[span]; ok {
			continue
		}
		seenSpans[span] = struct{}{}
		results = append(results, Candidate{
			Index:           sc.idx,
			Score:           sc.score,
			Chunk:           chunk,
			SentenceIndices: indices,
		})
		if len(results) >= topK {
			break
		}
	}
	return results
}

// normalizeScores divides by the max score, clamping to zero when the max
// is not positive
func normalizeScores(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	maxv := values[0]
	for _, v := range values[1:] {
		if v > maxv {
			maxv = v
		}
	}
	out := make([]float64, len(values))
	if maxv <= 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / maxv
	}
	return out
}

// FallbackFromText scores raw document paragraphs by query-term overlap when
// sentence-level retrieval produced nothing. Candidate indices refer to
// paragraphs rather than sentences.
func FallbackFromText(rule model.Rule, documentText string, topK, paragraphWindow int) []Candidate {
	if documentText == "" {
		return nil
	}
	queryTerms := make(map[string]struct{})
	for _, t := range BuildQueryTerms(rule) {
		queryTerms[t] = struct{}{}
	}

	var paragraphs []string
	for _, p := range strings.Split(documentText, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i, p := range paragraphs {
		toks := make(map[string]struct{})
		for _, t := range Tokenize(p) {
			toks[t] = struct{}{}
		}
		overlap := 0
		for t := range queryTerms {
			if _, ok := toks[t]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			denom := len(toks)
			if denom < 5 {
				denom = 5
			}
			ranked = append(ranked, scored{idx: i, score: float64(overlap) / float64(denom)})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var results []Candidate
	seenSpans := make(map[[2]int]struct{})
	for _, sc := range ranked {
		start := sc.idx - paragraphWindow
		if start < 0 {
			start = 0
		}
		end := sc.idx + paragraphWindow
		if end > len(paragraphs)-1 {
			end = len(paragraphs) - 1
		}
		span := [2]int{start, end}
		if _, ok := seenSpans[span]; ok {
			continue
		}
		seenSpans[span] = struct{}{}
		indices := make([]int, 0, end-start+1)
		parts := make([]string, 0, end-start+1)
		for i := start; i <= end; i++ {
			indices = append(indices, i)
			parts = append(parts, paragraphs[i])
		}
		results = append(results, Candidate{
			Index:           sc.idx,
			Score:           sc.score,
			Chunk:           strings.Join(parts, "\n"),
			SentenceIndices: indices,
		})
		if len(results) >= topK {
			break
		}
	}
	return results
}
