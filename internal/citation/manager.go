package citation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/clausecheck/clausecheck/internal/anchor"
	"github.com/clausecheck/clausecheck/internal/model"
)

const (
	// charsPerPage is the estimate used when a document carries no page anchors
	charsPerPage = 3000
	// hintRadius bounds the localized search around a position hint
	hintRadius = 1000
	// maxFuzzyDocLength disables sliding-window fuzzy search on documents
	// where the quadratic scan would be too slow
	maxFuzzyDocLength = 100000

	fuzzyMatchScore      = 0.8
	anchoredConfidence   = 0.9
	defaultMinQuoteChars = 20
	defaultMaxQuoteChars = 500
)

var (
	anchorFormatPattern = regexp.MustCompile(`^\[\[page=\d+\]\]$`)
	quotePattern        = regexp.MustCompile(`"([^"]+)"`)
	anchoredTextPattern = regexp.MustCompile(`([^"\[]+)\s*\[\[page=(\d+)\]\]`)
)

// Validation reports whether a citation could be located and verified
// against the document
type Validation struct {
	IsValid    bool     `json:"is_valid"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	MatchScore float64  `json:"match_score"`
}

// ManagerStats counts manager activity across a run
type ManagerStats struct {
	CitationsExtracted int `json:"citations_extracted"`
	CitationsValidated int `json:"citations_validated"`
	ValidationFailures int `json:"validation_failures"`
}

// Manager locates citation text inside documents, resolves page numbers,
// and validates citations produced by the judge
type Manager struct {
	mu    sync.Mutex
	stats ManagerStats
}

// NewManager creates a citation manager
func NewManager() *Manager {
	return &Manager{}
}

// ExtractCitations pulls quoted spans and pre-anchored spans out of model
// output and locates each one in the document. Quotes outside the length
// bounds are ignored.
func (m *Manager) ExtractCitations(text, documentText string, index *anchor.Index) []model.Citation {
	var citations []model.Citation

	for _, match := range quotePattern.FindAllStringSubmatch(text, -1) {
		quoted := match[1]
		if len(quoted) < defaultMinQuoteChars || len(quoted) > defaultMaxQuoteChars {
			continue
		}
		if c := m.locate(quoted, documentText, -1, index, 1.0); c != nil {
			citations = append(citations, *c)
		}
	}

	for _, match := range anchoredTextPattern.FindAllStringSubmatch(text, -1) {
		anchored := strings.TrimSpace(match[1])
		if len(anchored) < defaultMinQuoteChars || len(anchored) > defaultMaxQuoteChars {
			continue
		}
		if c := m.locate(anchored, documentText, -1, index, anchoredConfidence); c != nil {
			citations = append(citations, *c)
		}
	}
	return citations
}

// CreateCitation locates text in the document and builds a citation with a
// resolved or estimated page number. Returns nil when the text cannot be
// found.
func (m *Manager) CreateCitation(text, documentText string, hintPosition int, index *anchor.Index) *model.Citation {
	return m.locate(text, documentText, hintPosition, index, 1.0)
}

func (m *Manager) locate(text, documentText string, hintPosition int, index *anchor.Index, confidence float64) *model.Citation {
	start, end, ok := FindInDocument(text, documentText, hintPosition, false)
	if !ok {
		return nil
	}

	page, estimated := m.resolvePage(start, len(documentText), index)
	citation := &model.Citation{
		Type:          model.CitationDirectQuote,
		SourceText:    text,
		PageNumber:    page,
		PageEstimated: estimated,
		StartChar:     start,
		EndChar:       end,
		Confidence:    confidence,
	}
	citation.Location = fmt.Sprintf("[[page=%d]]", page)

	m.mu.Lock()
	m.stats.CitationsExtracted++
	m.mu.Unlock()
	return citation
}

// resolvePage prefers the anchor index; without one the page is estimated
// from position and flagged as such
func (m *Manager) resolvePage(position, docLength int, index *anchor.Index) (int, bool) {
	if index != nil && index.Anchored() {
		return index.PageForPosition(position), false
	}
	return EstimatePage(position), true
}

// ValidateCitation checks that a citation's text exists in the document,
// that its page matches the anchor index, and that its anchor is well
// formed. Page mismatches are warnings; an unlocatable quote is an error.
func (m *Manager) ValidateCitation(citation model.Citation, documentText string, index *anchor.Index, requireExact bool) Validation {
	validation := Validation{IsValid: true}

	start, end, ok := FindInDocument(citation.SourceText, documentText, citation.StartChar, !requireExact)
	if !ok {
		validation.IsValid = false
		validation.Errors = append(validation.Errors, "citation text not found in document")
	} else {
		if index != nil && index.Anchored() {
			actualPage := index.PageForPosition(start)
			if citation.PageNumber > 0 && actualPage != citation.PageNumber {
				validation.Warnings = append(validation.Warnings,
					fmt.Sprintf("page mismatch: cited page %d, actual page %d", citation.PageNumber, actualPage))
			}
		}
		if requireExact {
			validation.MatchScore = similarity(citation.SourceText, documentText[start:end])
		} else {
			validation.MatchScore = fuzzyMatchScore
		}
	}

	if citation.PageNumber > 0 && !anchorFormatPattern.MatchString(citation.Anchor()) {
		validation.IsValid = false
		validation.Errors = append(validation.Errors, fmt.Sprintf("invalid anchor format: %s", citation.Anchor()))
	}

	m.mu.Lock()
	m.stats.CitationsValidated++
	if !validation.IsValid {
		m.stats.ValidationFailures++
	}
	m.mu.Unlock()
	return validation
}

// Statistics returns a snapshot of manager counters
func (m *Manager) Statistics() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// FindInDocument locates text in a document: near the hint position first,
// then exact anywhere, then case-insensitive, then fuzzy if allowed.
// hintPosition < 0 means no hint.
func FindInDocument(text, document string, hintPosition int, fuzzy bool) (int, int, bool) {
	if text == "" || document == "" {
		return 0, 0, false
	}

	if hintPosition >= 0 {
		searchStart := hintPosition - hintRadius
		if searchStart < 0 {
			searchStart = 0
		}
		searchEnd := hintPosition + hintRadius
		if searchEnd > len(document) {
			searchEnd = len(document)
		}
		if searchStart < searchEnd {
			if pos := strings.Index(document[searchStart:searchEnd], text); pos >= 0 {
				start := searchStart + pos
				return start, start + len(text), true
			}
		}
	}

	if pos := strings.Index(document, text); pos >= 0 {
		return pos, pos + len(text), true
	}
	if pos := strings.Index(strings.ToLower(document), strings.ToLower(text)); pos >= 0 {
		return pos, pos + len(text), true
	}
	if fuzzy {
		return fuzzyFind(text, document, DefaultFuzzyThreshold)
	}
	return 0, 0, false
}

// fuzzyFind slides a window of the target's length across the document and
// keeps the most similar span. The scan is skipped on documents large enough
// to make it quadratic in practice.
func fuzzyFind(text, document string, threshold float64) (int, int, bool) {
	textLen := len(text)
	if textLen == 0 || textLen > len(document) || len(document) > maxFuzzyDocLength {
		return 0, 0, false
	}

	bestScore := 0.0
	bestStart := -1
	for i := 0; i+textLen <= len(document); i++ {
		score := similarity(text, document[i:i+textLen])
		if score > bestScore && score >= threshold {
			bestScore = score
			bestStart = i
		}
	}
	if bestStart < 0 {
		return 0, 0, false
	}
	return bestStart, bestStart + textLen, true
}

// similarity is a character-bigram Dice coefficient, case-insensitive
func similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i+2 <= len(a); i++ {
		bigrams[a[i:i+2]]++
	}
	shared := 0
	for i := 0; i+2 <= len(b); i++ {
		bg := b[i : i+2]
		if bigrams[bg] > 0 {
			bigrams[bg]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b)-2)
}

// EstimatePage guesses a page number from character position when no
// anchors are available
func EstimatePage(position int) int {
	return position/charsPerPage + 1
}
