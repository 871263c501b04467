package anchor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Pattern matches inline [[page=N]] markers in converted document text
var Pattern = regexp.MustCompile(`\[\[page=(\d+)\]\]`)

// Boundary marks the character offset where a page starts
type Boundary struct {
	Page   int
	Offset int
}

// Index is an ordered set of page boundaries for one document version.
// It is built once and never modified afterwards.
type Index struct {
	boundaries []Boundary
	warnings   []string
	anchored   bool
}

// Build scans text for [[page=N]] markers and records their positions.
// A document without anchors gets a single implicit boundary at page 1.
// Out-of-order or duplicate anchors are kept with a warning; page lookup
// uses last-known-boundary semantics either way.
func Build(text string) *Index {
	idx := &Index{}
	lastPage := 0
	for _, m := range Pattern.FindAllStringSubmatchIndex(text, -1) {
		page, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		if page < lastPage {
			idx.warnings = append(idx.warnings,
				fmt.Sprintf("out-of-order page anchor [[page=%d]] after [[page=%d]]", page, lastPage))
		} else if page == lastPage {
			idx.warnings = append(idx.warnings,
				fmt.Sprintf("duplicate page anchor [[page=%d]]", page))
		}
		idx.boundaries = append(idx.boundaries, Boundary{Page: page, Offset: m[0]})
		if page > lastPage {
			lastPage = page
		}
	}
	idx.anchored = len(idx.boundaries) > 0
	if len(idx.boundaries) == 0 {
		idx.boundaries = append(idx.boundaries, Boundary{Page: 1, Offset: 0})
	}
	return idx
}

// Anchored reports whether the document carried any explicit page anchors,
// as opposed to the implicit page-1 boundary
func (idx *Index) Anchored() bool {
	return idx.anchored
}

// PageForPosition returns the page of the last boundary at or before offset.
// Positions before the first anchor default to page 1.
func (idx *Index) PageForPosition(offset int) int {
	page := 1
	for _, b := range idx.boundaries {
		if b.Offset > offset {
			break
		}
		page = b.Page
	}
	return page
}

// Boundaries returns a copy of the recorded boundaries in document order
func (idx *Index) Boundaries() []Boundary {
	out := make([]Boundary, len(idx.boundaries))
	copy(out, idx.boundaries)
	return out
}

// Pages returns the number of distinct pages seen
func (idx *Index) Pages() int {
	seen := make(map[int]struct{}, len(idx.boundaries))
	for _, b := range idx.boundaries {
		seen[b.Page] = struct{}{}
	}
	return len(seen)
}

// Warnings returns anomalies noticed while building (out-of-order, duplicates)
func (idx *Index) Warnings() []string {
	return idx.warnings
}

// ExtractPageMap materializes a dense position-to-page lookup for repeated
// queries, such as mapping every sentence of a document.
func ExtractPageMap(text string) map[int]int {
	pageMap := make(map[int]int, len(text))
	idx := Build(text)
	bounds := idx.boundaries
	current := 1
	next := 0
	for pos := 0; pos < len(text); pos++ {
		for next < len(bounds) && bounds[next].Offset <= pos {
			current = bounds[next].Page
			next++
		}
		pageMap[pos] = current
	}
	return pageMap
}

// Strip removes all page anchors from text
func Strip(text string) string {
	return strings.TrimSpace(Pattern.ReplaceAllString(text, ""))
}

// AddToCitation appends a page anchor to a citation string unless one is present
func AddToCitation(citation string, page int) string {
	if Pattern.MatchString(citation) {
		return citation
	}
	return fmt.Sprintf("%s [[page=%d]]", citation, page)
}

// Validate checks anchor ordering in text and returns any problems found.
// Malformed ordering is reported, never fatal.
func Validate(text string) (bool, []string) {
	idx := Build(text)
	var errs []string
	if len(Pattern.FindAllString(text, -1)) == 0 {
		errs = append(errs, "no page anchors found in text")
	}
	errs = append(errs, idx.warnings...)
	return len(errs) == 0, errs
}

// AddHeuristicAnchors injects [[page=N]] markers every linesPerPage lines for
// documents that arrived without page information. The result always starts
// with a page 1 anchor.
func AddHeuristicAnchors(content string, linesPerPage int) string {
	if Pattern.MatchString(content) {
		return content
	}
	if linesPerPage <= 0 {
		linesPerPage = 50
	}
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+len(lines)/linesPerPage+1)
	out = append(out, "[[page=1]]")
	page := 2
	for i, line := range lines {
		if i > 0 && i%linesPerPage == 0 {
			out = append(out, fmt.Sprintf("[[page=%d]]", page))
			page++
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// MapSentencesToPages locates each sentence in the document and resolves its
// page. Sentences that cannot be located default to page 1. Search is resumed
// from the previous hit so repeated sentences resolve in document order.
func MapSentencesToPages(sentences []string, documentText string) map[int]int {
	idx := Build(documentText)
	pages := make(map[int]int, len(sentences))
	searchFrom := 0
	for i, sentence := range sentences {
		pos := strings.Index(documentText[searchFrom:], sentence)
		if pos >= 0 {
			abs := searchFrom + pos
			pages[i] = idx.PageForPosition(abs)
			searchFrom = abs + len(sentence)
			continue
		}
		// Retry from the top for out-of-order segmentations
		if pos = strings.Index(documentText, sentence); pos >= 0 {
			pages[i] = idx.PageForPosition(pos)
		} else {
			pages[i] = 1
		}
	}
	return pages
}

// SortBoundaries orders boundaries by offset; Build preserves document order
// already, this exists for callers assembling indexes from external data.
func SortBoundaries(bounds []Boundary) {
	sort.Slice(bounds, func(i, j int) bool { return bounds[i].Offset < bounds[j].Offset })
}
