package segment

import (
	"strings"
	"testing"
)

func TestSplitSentences_Basic(t *testing.T) {
	text := "The agreement shall remain in force for three years. Either party may terminate with notice. Short."
	sentences := SplitSentences(text)

	if len(sentences) != 2 {
		t.Fatalf("Expected 2 sentences (short fragment dropped), got %d: %v", len(sentences), sentences)
	}
	if !strings.Contains(sentences[0], "three years") {
		t.Errorf("Unexpected first sentence: %q", sentences[0])
	}
}

func TestSplitSentences_AbbreviationNotSplit(t *testing.T) {
	text := "The supplier Acme Inc.provides services under clause 4. Payment is due within thirty days of invoice."
	sentences := SplitSentences(text)

	// "Inc." is not followed by whitespace, so no split happens there
	for _, s := range sentences {
		if s == "The supplier Acme Inc." {
			t.Errorf("Split on abbreviation: %q", s)
		}
	}
}

func TestSegment_PageAndSection(t *testing.T) {
	doc := "[[page=1]]\n# Liability\nThe liability of each party is capped at fees paid in the prior year.\n[[page=2]]\nThis limitation shall not apply to claims arising from gross negligence."
	segs := NewSegmenter().Segment(doc)

	if len(segs) != 2 {
		t.Fatalf("Expected 2 sentences, got %d", len(segs))
	}
	if segs[0].PageNumber != 1 {
		t.Errorf("Expected first sentence on page 1, got %d", segs[0].PageNumber)
	}
	if segs[0].SectionName != "Liability" {
		t.Errorf("Expected section Liability, got %q", segs[0].SectionName)
	}
	if segs[1].PageNumber != 2 {
		t.Errorf("Expected second sentence on page 2, got %d", segs[1].PageNumber)
	}
	if segs[0].SentenceID != "sent_0000" || segs[1].SentenceID != "sent_0001" {
		t.Errorf("Unexpected sentence IDs: %q %q", segs[0].SentenceID, segs[1].SentenceID)
	}
}

func TestSegment_Empty(t *testing.T) {
	if got := NewSegmenter().Segment("   \n  "); got != nil {
		t.Errorf("Expected nil for blank document, got %v", got)
	}
}

func TestExtractVisibleText(t *testing.T) {
	html := `
	<html>
	<head><script>var hidden = "not visible text";</script></head>
	<body><p>The term of this agreement is five years.</p></body>
	</html>
	`
	text, err := ExtractVisibleText(html)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(text, "five years") {
		t.Errorf("Expected body text, got %q", text)
	}
	if strings.Contains(text, "not visible") {
		t.Errorf("Script content leaked into text: %q", text)
	}
}

func TestLooksLikeHTML(t *testing.T) {
	if !LooksLikeHTML("<!DOCTYPE html><html><body></body></html>") {
		t.Error("Expected HTML to be detected")
	}
	if LooksLikeHTML("# Heading\n\nplain markdown") {
		t.Error("Markdown misdetected as HTML")
	}
}
