package segment

import (
	"fmt"
	"strings"

	"github.com/clausecheck/clausecheck/internal/anchor"
	"golang.org/x/net/html"
)

const (
	minSentenceLen = 20
	maxSentenceLen = 800
)

// Sentence is a retrievable unit of document text with its resolved metadata
type Sentence struct {
	Text        string `json:"sentence"`
	Index       int    `json:"index"`
	SentenceID  string `json:"sentence_id"`
	PageNumber  int    `json:"page_number,omitempty"`
	SectionName string `json:"section_name,omitempty"`
}

// Segmenter splits converted documents into sentences with page and section
// metadata attached
type Segmenter struct{}

// NewSegmenter creates a new segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment splits page-anchored document text into sentences and resolves each
// sentence's page and enclosing section heading.
func (s *Segmenter) Segment(documentText string) []Sentence {
	if strings.TrimSpace(documentText) == "" {
		return nil
	}
	idx := anchor.Build(documentText)

	var sentences []Sentence
	section := ""
	searchFrom := 0
	n := 0
	for _, para := range strings.Split(documentText, "\n") {
		trimmed := strings.TrimSpace(anchor.Strip(para))
		if trimmed == "" {
			continue
		}
		if heading, ok := markdownHeading(trimmed); ok {
			section = heading
			continue
		}
		for _, text := range SplitSentences(trimmed) {
			page := 1
			pos := strings.Index(documentText[searchFrom:], text)
			if pos >= 0 {
				abs := searchFrom + pos
				page = idx.PageForPosition(abs)
				searchFrom = abs + len(text)
			} else if pos = strings.Index(documentText, text); pos >= 0 {
				page = idx.PageForPosition(pos)
			}
			sentences = append(sentences, Sentence{
				Text:        text,
				Index:       n,
				SentenceID:  SentenceID(n),
				PageNumber:  page,
				SectionName: section,
			})
			n++
		}
	}
	return sentences
}

// SentenceID formats the stable identifier for a sentence index
func SentenceID(index int) string {
	return fmt.Sprintf("sent_%04d", index)
}

// SplitSentences splits text into sentences using terminator heuristics,
// keeping only spans within the length bounds.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= minSentenceLen && len(sentence) <= maxSentenceLen {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on abbreviations
			if i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\t') {
				flush()
			}
		}
	}
	if current.Len() > 0 {
		flush()
	}
	return sentences
}

// markdownHeading reports whether a line is a markdown heading and returns
// its text
func markdownHeading(line string) (string, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	heading := strings.TrimLeft(line, "#")
	if heading == line || !strings.HasPrefix(heading, " ") {
		return "", false
	}
	return strings.TrimSpace(heading), true
}

// Texts extracts the raw sentence strings for retrieval scoring
func Texts(sentences []Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}

// ExtractVisibleText extracts readable text from an HTML document, skipping
// scripts and styles. Used when the conversion service returns HTML rather
// than markdown.
func ExtractVisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(buf.String()), nil
}

// LooksLikeHTML is a cheap sniff for converter responses that came back as
// HTML instead of markdown
func LooksLikeHTML(content string) bool {
	head := strings.ToLower(content)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}
