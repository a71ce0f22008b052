package simtext

import "testing"

func TestSentencesSplitsAndFilters(t *testing.T) {
	text := "Short. This is a sentence long enough to keep. Another long enough sentence here!"
	got := Sentences(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences kept (short one dropped), got %d: %v", len(got), got)
	}
}

func TestSentencesEmpty(t *testing.T) {
	if got := Sentences("   "); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestSentencesNoTerminator(t *testing.T) {
	text := "this sentence has no terminator but is definitely long enough"
	got := Sentences(text)
	if len(got) != 1 {
		t.Fatalf("expected trailing fragment without terminator to be kept, got %v", got)
	}
}
