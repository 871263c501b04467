package citation

import (
	"strings"
	"testing"

	"github.com/clausecheck/clausecheck/internal/anchor"
	"github.com/clausecheck/clausecheck/internal/model"
)

const anchoredDoc = "[[page=1]]\nThis agreement commences on the effective date.\n\n[[page=2]]\nLiability of each party is capped at the fees paid in the prior twelve months.\n"

func TestFindInDocument_HintFirst(t *testing.T) {
	doc := strings.Repeat("filler text ", 200) + "the needle sentence here" + strings.Repeat(" trailing", 100)
	needlePos := strings.Index(doc, "the needle sentence here")

	start, end, ok := FindInDocument("the needle sentence here", doc, needlePos+50, false)
	if !ok {
		t.Fatal("Expected hit near hint")
	}
	if start != needlePos || end != needlePos+len("the needle sentence here") {
		t.Errorf("Expected span at %d, got [%d,%d)", needlePos, start, end)
	}
}

func TestFindInDocument_CaseInsensitiveFallthrough(t *testing.T) {
	doc := "LIABILITY IS CAPPED AT THE FEES PAID."
	start, _, ok := FindInDocument("liability is capped", doc, -1, false)
	if !ok || start != 0 {
		t.Errorf("Expected case-insensitive match at 0, got ok=%v start=%d", ok, start)
	}
}

func TestFindInDocument_FuzzyBoundary(t *testing.T) {
	doc := "The supplier shall maintain insurance coverage during the term."

	// One character off: similarity stays above the threshold
	_, _, ok := FindInDocument("The supplier shall maintain insurence coverage during the term.", doc, -1, true)
	if !ok {
		t.Error("Expected fuzzy match for near-identical text")
	}

	// Mostly different text must not match
	_, _, ok = FindInDocument("Completely different words that appear nowhere in this form.", doc, -1, true)
	if ok {
		t.Error("Expected no fuzzy match for unrelated text")
	}

	// Fuzzy disabled: near-match fails
	_, _, ok = FindInDocument("The supplier shall maintain insurence coverage during the term.", doc, -1, false)
	if ok {
		t.Error("Expected no match with fuzzy disabled")
	}
}

func TestFuzzyFind_LargeDocumentGuard(t *testing.T) {
	doc := strings.Repeat("a", maxFuzzyDocLength+1)
	if _, _, ok := fuzzyFind("aaaa aaaa aaaa", doc, 0.8); ok {
		t.Error("Expected fuzzy scan to be skipped on oversized documents")
	}
}

func TestCreateCitation_AnchoredPage(t *testing.T) {
	index := anchor.Build(anchoredDoc)
	m := NewManager()

	c := m.CreateCitation("Liability of each party is capped", anchoredDoc, -1, index)
	if c == nil {
		t.Fatal("Expected citation")
	}
	if c.PageNumber != 2 {
		t.Errorf("Expected page 2 from anchors, got %d", c.PageNumber)
	}
	if c.PageEstimated {
		t.Error("Anchored page must not be flagged as estimated")
	}
}

func TestCreateCitation_EstimatedPage(t *testing.T) {
	doc := strings.Repeat("padding text ", 300) + "the cited clause appears here"
	m := NewManager()

	c := m.CreateCitation("the cited clause appears here", doc, -1, nil)
	if c == nil {
		t.Fatal("Expected citation")
	}
	if !c.PageEstimated {
		t.Error("Expected estimated-page flag without anchors")
	}
	if want := c.StartChar/charsPerPage + 1; c.PageNumber != want {
		t.Errorf("Expected estimated page %d, got %d", want, c.PageNumber)
	}
}

func TestCreateCitation_NotFound(t *testing.T) {
	m := NewManager()
	if c := m.CreateCitation("text that does not exist", "short document", -1, nil); c != nil {
		t.Errorf("Expected nil for unlocatable text, got %+v", c)
	}
}

func TestValidateCitation_Valid(t *testing.T) {
	index := anchor.Build(anchoredDoc)
	m := NewManager()
	c := m.CreateCitation("Liability of each party is capped", anchoredDoc, -1, index)

	v := m.ValidateCitation(*c, anchoredDoc, index, true)
	if !v.IsValid {
		t.Fatalf("Expected valid citation, errors: %v", v.Errors)
	}
	if v.MatchScore < 0.99 {
		t.Errorf("Expected exact match score, got %v", v.MatchScore)
	}
	if len(v.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", v.Warnings)
	}
}

func TestValidateCitation_PageMismatchWarns(t *testing.T) {
	index := anchor.Build(anchoredDoc)
	m := NewManager()
	c := model.Citation{
		SourceText: "Liability of each party is capped",
		PageNumber: 7,
	}

	v := m.ValidateCitation(c, anchoredDoc, index, true)
	if !v.IsValid {
		t.Fatalf("Page mismatch must be a warning, not an error: %v", v.Errors)
	}
	if len(v.Warnings) == 0 || !strings.Contains(v.Warnings[0], "page mismatch") {
		t.Errorf("Expected page mismatch warning, got %v", v.Warnings)
	}
}

func TestValidateCitation_UnlocatableText(t *testing.T) {
	m := NewManager()
	c := model.Citation{SourceText: "this phrase is nowhere", PageNumber: 1}

	v := m.ValidateCitation(c, anchoredDoc, nil, true)
	if v.IsValid {
		t.Error("Expected invalid citation for unlocatable text")
	}
	if v.MatchScore != 0 {
		t.Errorf("Expected zero match score, got %v", v.MatchScore)
	}

	stats := m.Statistics()
	if stats.ValidationFailures != 1 {
		t.Errorf("Expected 1 validation failure, got %d", stats.ValidationFailures)
	}
}

func TestExtractCitations_QuotedSpans(t *testing.T) {
	index := anchor.Build(anchoredDoc)
	m := NewManager()
	answer := `The cap is addressed: "Liability of each party is capped at the fees paid" per the agreement.`

	citations := m.ExtractCitations(answer, anchoredDoc, index)
	if len(citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(citations))
	}
	if citations[0].PageNumber != 2 {
		t.Errorf("Expected page 2, got %d", citations[0].PageNumber)
	}
}

func TestEstimatePage(t *testing.T) {
	if got := EstimatePage(0); got != 1 {
		t.Errorf("Expected page 1 at position 0, got %d", got)
	}
	if got := EstimatePage(6500); got != 3 {
		t.Errorf("Expected page 3 at position 6500, got %d", got)
	}
}
