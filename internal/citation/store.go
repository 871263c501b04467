package citation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/clausecheck/clausecheck/internal/model"
	"github.com/clausecheck/clausecheck/internal/segment"
)

// DeterministicField marks an answer resolved by pattern matching, which
// needs no citations of its own.
const DeterministicField = "DETERMINISTIC_FIELD"

const (
	// DefaultMinConfidence is the floor below which a phrase match is not
	// turned into a citation
	DefaultMinConfidence = 0.6
	// DefaultFuzzyThreshold is the word-overlap ratio a fuzzy match must reach
	DefaultFuzzyThreshold = 0.8

	directQuoteThreshold = 0.95
	paraphraseThreshold  = 0.8
	fallbackConfidence   = 0.3

	maxKeyPhrases     = 5
	minPhraseLength   = 10
	phraseWordCount   = 4
	minFuzzyWordCount = 3
)

var (
	sentenceSplitPattern = regexp.MustCompile(`[.!?]+`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
	matchCharPattern     = regexp.MustCompile(`[^\w\s.,;:!?]`)
)

// Store is a per-run citation arena. Each analysis run owns its own store so
// citation IDs are small, dense, and reproducible across identical runs.
type Store struct {
	mu        sync.Mutex
	citations []model.Citation
	sentences []segment.Sentence
	nextID    int
}

// NewStore creates an empty store with IDs starting at 1
func NewStore() *Store {
	return &Store{nextID: 1}
}

// RegisterSentences records the source sentences citations can link to.
// Sentences with page numbers sort first, then those with sections, so
// anchored evidence wins ties during matching.
func (s *Store) RegisterSentences(sentences []segment.Sentence) {
	sorted := make([]segment.Sentence, len(sentences))
	copy(sorted, sentences)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sentencePriority(sorted[i]) > sentencePriority(sorted[j])
	})

	s.mu.Lock()
	s.sentences = sorted
	s.mu.Unlock()
}

func sentencePriority(sent segment.Sentence) int {
	priority := 0
	if sent.PageNumber > 0 {
		priority += 2
	}
	if sent.SectionName != "" {
		priority++
	}
	return priority
}

// Create allocates a new citation with the next monotonic ID and a location
// string derived from section, page, and sentence metadata.
func (s *Store) Create(citationType model.CitationType, sourceText, sentenceID string, pageNumber int, sectionName string, confidence float64) model.Citation {
	s.mu.Lock()
	defer s.mu.Unlock()

	citation := model.Citation{
		CitationID:  s.nextID,
		Type:        citationType,
		SourceText:  sourceText,
		Location:    formatLocation(sectionName, pageNumber, sentenceID),
		SentenceID:  sentenceID,
		PageNumber:  pageNumber,
		SectionName: sectionName,
		Confidence:  confidence,
	}
	s.nextID++
	s.citations = append(s.citations, citation)
	return citation
}

func formatLocation(sectionName string, pageNumber int, sentenceID string) string {
	var parts []string
	if sectionName != "" {
		parts = append(parts, "Section "+sectionName)
	}
	if pageNumber > 0 {
		parts = append(parts, fmt.Sprintf("[[page=%d]]", pageNumber))
	} else if sentenceID != "" {
		parts = append(parts, "sentence "+sentenceID)
	}
	if len(parts) == 0 {
		return "Unknown location"
	}
	return strings.Join(parts, " ")
}

// FindTextMatch reports whether target appears in search text. Exact
// substring matches score 1.0; otherwise a word window is slid over the
// search text and the best overlap ratio is compared to the threshold.
// Targets under three words are too short to match fuzzily.
func FindTextMatch(target, search string, fuzzyThreshold float64) (bool, float64) {
	if target == "" || search == "" {
		return false, 0
	}
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}

	targetClean := cleanForMatching(target)
	searchClean := cleanForMatching(search)

	if strings.Contains(searchClean, targetClean) {
		return true, 1.0
	}

	targetWords := strings.Fields(targetClean)
	searchWords := strings.Fields(searchClean)
	if len(targetWords) < minFuzzyWordCount {
		return false, 0
	}

	best := 0.0
	for i := 0; i+len(targetWords) <= len(searchWords); i++ {
		matched := 0
		for j, word := range targetWords {
			if searchWords[i+j] == word {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(targetWords))
		if ratio > best {
			best = ratio
		}
	}
	if best >= fuzzyThreshold {
		return true, best
	}
	return false, best
}

func cleanForMatching(text string) string {
	text = whitespacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
	text = matchCharPattern.ReplaceAllString(text, "")
	return strings.ToLower(text)
}

// FromAnswer creates citations for an answer by matching its key phrases
// against the registered sentences. Deterministic fields get no citations;
// absent answers get a single not_found citation. If nothing matches, the
// highest-priority sentence is cited as a low-confidence inference so the
// answer is never left untraceable.
func (s *Store) FromAnswer(answer string, minConfidence float64) []model.Citation {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if answer == DeterministicField {
		return nil
	}
	if answer == "" || answer == "Not specified" || answer == "Not found" {
		return []model.Citation{s.Create(model.CitationNotFound, "", "", 0, "", 1.0)}
	}

	s.mu.Lock()
	sentences := s.sentences
	s.mu.Unlock()

	phrases := keyPhrases(answer, maxKeyPhrases)
	var citations []model.Citation

	for _, sent := range sentences {
		for _, phrase := range phrases {
			found, confidence := FindTextMatch(phrase, sent.Text, DefaultFuzzyThreshold)
			if !found || confidence < minConfidence {
				continue
			}
			citationType := model.CitationInference
			switch {
			case confidence >= directQuoteThreshold:
				citationType = model.CitationDirectQuote
			case confidence >= paraphraseThreshold:
				citationType = model.CitationParaphrase
			}
			citations = append(citations, s.Create(citationType, sent.Text, sent.SentenceID, sent.PageNumber, sent.SectionName, confidence))
			break // one citation per sentence
		}
	}

	if len(citations) == 0 && len(sentences) > 0 {
		best := sentences[0]
		citations = append(citations, s.Create(model.CitationInference, best.Text, best.SentenceID, best.PageNumber, best.SectionName, fallbackConfidence))
	}
	return citations
}

// keyPhrases extracts short matchable phrases from an answer. Long sentences
// contribute their opening and closing words; short ones are used whole.
func keyPhrases(text string, maxPhrases int) []string {
	if text == "" {
		return nil
	}
	var phrases []string
	seen := make(map[string]bool)
	add := func(phrase string) {
		if phrase != "" && !seen[phrase] {
			seen[phrase] = true
			phrases = append(phrases, phrase)
		}
	}

	for _, sentence := range sentenceSplitPattern.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < minPhraseLength {
			continue
		}
		words := strings.Fields(sentence)
		if len(words) < minFuzzyWordCount {
			continue
		}
		if len(words) >= phraseWordCount+2 {
			add(strings.Join(words[:phraseWordCount], " "))
			add(strings.Join(words[len(words)-phraseWordCount:], " "))
		} else {
			add(sentence)
		}
	}
	if len(phrases) > maxPhrases {
		phrases = phrases[:maxPhrases]
	}
	return phrases
}

// All returns every citation created in this run, in ID order
func (s *Store) All() []model.Citation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Citation, len(s.citations))
	copy(out, s.citations)
	return out
}

// Export formats citations for report output, attaching the page anchor
// when a page number is known
func Export(citations []model.Citation) []model.CitationExport {
	exports := make([]model.CitationExport, 0, len(citations))
	for _, c := range citations {
		exports = append(exports, model.CitationExport{
			Type:       c.Type,
			SourceText: c.SourceText,
			Location:   c.Location,
			Confidence: roundConfidence(c.Confidence),
			CitationID: c.CitationID,
			PageAnchor: c.Anchor(),
		})
	}
	return exports
}

func roundConfidence(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
