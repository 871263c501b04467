package anchor

import (
	"strings"
	"testing"
)

func TestBuild_NoAnchors(t *testing.T) {
	idx := Build("plain text without any markers")

	if got := idx.PageForPosition(0); got != 1 {
		t.Errorf("Expected page 1 at position 0, got %d", got)
	}
	if got := idx.PageForPosition(500); got != 1 {
		t.Errorf("Expected page 1 past end, got %d", got)
	}
	if len(idx.Boundaries()) != 1 {
		t.Errorf("Expected single implicit boundary, got %d", len(idx.Boundaries()))
	}
}

func TestBuild_PageForPosition(t *testing.T) {
	text := "[[page=1]]\nTerm is 3 years.\n\n[[page=2]]\nLiability capped at fees paid."
	idx := Build(text)

	liabilityPos := strings.Index(text, "Liability")
	if got := idx.PageForPosition(liabilityPos); got != 2 {
		t.Errorf("Expected page 2 for liability clause, got %d", got)
	}
	termPos := strings.Index(text, "Term")
	if got := idx.PageForPosition(termPos); got != 1 {
		t.Errorf("Expected page 1 for term clause, got %d", got)
	}
}

func TestBuild_Monotonicity(t *testing.T) {
	text := "[[page=1]] aaa [[page=2]] bbb [[page=3]] ccc [[page=7]] ddd"
	idx := Build(text)

	last := 0
	for pos := 0; pos < len(text); pos++ {
		page := idx.PageForPosition(pos)
		if page < last {
			t.Fatalf("Page decreased from %d to %d at position %d", last, page, pos)
		}
		last = page
	}
}

func TestBuild_OutOfOrderAnchorsTolerated(t *testing.T) {
	text := "[[page=3]] aaa [[page=2]] bbb"
	idx := Build(text)

	if len(idx.Warnings()) == 0 {
		t.Error("Expected warning for out-of-order anchors")
	}
	// Last-known-boundary semantics: positions after [[page=2]] resolve to 2
	if got := idx.PageForPosition(len(text) - 1); got != 2 {
		t.Errorf("Expected last-known page 2, got %d", got)
	}
}

func TestBuild_DuplicateAnchorWarns(t *testing.T) {
	idx := Build("[[page=1]] a [[page=1]] b")
	if len(idx.Warnings()) == 0 {
		t.Error("Expected warning for duplicate anchor")
	}
}

func TestExtractPageMap(t *testing.T) {
	text := "[[page=1]]abc[[page=2]]def"
	pm := ExtractPageMap(text)

	if pm[0] != 1 {
		t.Errorf("Expected page 1 at start, got %d", pm[0])
	}
	if pm[len(text)-1] != 2 {
		t.Errorf("Expected page 2 at end, got %d", pm[len(text)-1])
	}
	// Dense map covers every position
	if len(pm) != len(text) {
		t.Errorf("Expected %d entries, got %d", len(text), len(pm))
	}
}

func TestStrip(t *testing.T) {
	got := Strip("[[page=1]]Hello [[page=2]]world")
	if strings.Contains(got, "[[page=") {
		t.Errorf("Anchors not stripped: %q", got)
	}
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "world") {
		t.Errorf("Content lost during strip: %q", got)
	}
}

func TestAddToCitation(t *testing.T) {
	got := AddToCitation("payment due in 30 days", 4)
	if got != "payment due in 30 days [[page=4]]" {
		t.Errorf("Unexpected citation: %q", got)
	}

	// Idempotent when an anchor already exists
	again := AddToCitation(got, 9)
	if again != got {
		t.Errorf("Expected unchanged citation, got %q", again)
	}
}

func TestAddHeuristicAnchors(t *testing.T) {
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = "line"
	}
	out := AddHeuristicAnchors(strings.Join(lines, "\n"), 50)

	if !strings.HasPrefix(out, "[[page=1]]") {
		t.Error("Expected output to start with page 1 anchor")
	}
	if !strings.Contains(out, "[[page=2]]") || !strings.Contains(out, "[[page=3]]") {
		t.Error("Expected anchors for pages 2 and 3")
	}
}

func TestMapSentencesToPages(t *testing.T) {
	text := "[[page=1]]\nFirst sentence here.\n[[page=2]]\nSecond sentence here."
	sentences := []string{"First sentence here.", "Second sentence here."}

	pages := MapSentencesToPages(sentences, text)
	if pages[0] != 1 {
		t.Errorf("Expected sentence 0 on page 1, got %d", pages[0])
	}
	if pages[1] != 2 {
		t.Errorf("Expected sentence 1 on page 2, got %d", pages[1])
	}

	// Unlocatable sentences default to page 1
	pages = MapSentencesToPages([]string{"not in document"}, text)
	if pages[0] != 1 {
		t.Errorf("Expected default page 1, got %d", pages[0])
	}
}

func TestValidate(t *testing.T) {
	ok, errs := Validate("no anchors at all")
	if ok || len(errs) == 0 {
		t.Error("Expected validation failure for anchor-free text")
	}

	ok, errs = Validate("[[page=1]] a [[page=2]] b")
	if !ok {
		t.Errorf("Expected valid anchors, got errors: %v", errs)
	}
}
