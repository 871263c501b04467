package model

import "fmt"

// CitationType classifies how closely a citation matches its source text
type CitationType string

const (
	CitationDirectQuote CitationType = "direct_quote"
	CitationParaphrase  CitationType = "paraphrase"
	CitationInference   CitationType = "inference"
	CitationNotFound    CitationType = "not_found"
)

// Citation links an answer or verdict back to a span of the source document.
// Citations are created by the citation store and referenced by ID; they are
// not mutated after creation except for page/location enrichment.
type Citation struct {
	CitationID  int          `json:"citation_id" yaml:"citation_id"`
	Type        CitationType `json:"type" yaml:"type"`
	SourceText  string       `json:"source_text" yaml:"source_text"`
	Location    string       `json:"location" yaml:"location"`
	SentenceID  string       `json:"sentence_id,omitempty" yaml:"sentence_id,omitempty"`
	PageNumber  int          `json:"page_number,omitempty" yaml:"page_number,omitempty"`
	SectionName string       `json:"section_name,omitempty" yaml:"section_name,omitempty"`
	Confidence  float64      `json:"confidence" yaml:"confidence"`
	StartChar   int          `json:"start_char,omitempty" yaml:"start_char,omitempty"`
	EndChar     int          `json:"end_char,omitempty" yaml:"end_char,omitempty"`
	// PageEstimated marks pages derived from the chars-per-page heuristic
	// rather than an explicit anchor. Estimated pages carry lower confidence.
	PageEstimated bool `json:"page_estimated,omitempty" yaml:"page_estimated,omitempty"`
}

// Anchor returns the [[page=N]] anchor for the citation, or "" when no page is known
func (c Citation) Anchor() string {
	if c.PageNumber <= 0 {
		return ""
	}
	return fmt.Sprintf("[[page=%d]]", c.PageNumber)
}

// Format renders the citation for display, truncating long source text
func (c Citation) Format(maxLength int) string {
	if maxLength <= 0 {
		maxLength = 200
	}
	text := c.SourceText
	if len(text) > maxLength {
		text = text[:maxLength-3] + "..."
	}
	if anchor := c.Anchor(); anchor != "" {
		return fmt.Sprintf("%q %s", text, anchor)
	}
	return fmt.Sprintf("%q", text)
}

// CitationExport is the externally-facing YAML/JSON shape of a citation
type CitationExport struct {
	Type       CitationType `json:"type" yaml:"type"`
	SourceText string       `json:"source_text" yaml:"source_text"`
	Location   string       `json:"location" yaml:"location"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
	CitationID int          `json:"citation_id" yaml:"citation_id"`
	PageAnchor string       `json:"page_anchor,omitempty" yaml:"page_anchor,omitempty"`
}
