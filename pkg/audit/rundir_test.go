package audit

import (
	"strings"
	"testing"
	"time"
)

func TestRunDirNameHasTimestampAndSlug(t *testing.T) {
	now := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	name := RunDirName(now, "What is the capital of France?")

	want := "20260305-143000_what-is-the-capital-of-france"
	if name != want {
		t.Fatalf("expected %q, got %q", want, name)
	}
}

func TestRunDirNameSortsChronologically(t *testing.T) {
	earlier := RunDirName(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "a")
	later := RunDirName(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), "a")
	if !(earlier < later) {
		t.Fatalf("expected lexical order to match chronological order: %q, %q", earlier, later)
	}
}

func TestSlugifyCollapsesPunctuationAndCase(t *testing.T) {
	got := Slugify("  Hello, World!! -- 2nd try  ")
	want := "hello-world-2nd-try"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSlugifyEmptyInputFallsBackToRun(t *testing.T) {
	if got := Slugify("   ...???   "); got != "run" {
		t.Fatalf("expected fallback slug %q, got %q", "run", got)
	}
}

func TestSlugifyTruncatesLongInput(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := Slugify(long)
	if len(got) > maxSlugLength {
		t.Fatalf("expected slug capped at %d characters, got %d (%q)", maxSlugLength, len(got), got)
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("expected truncated slug to not end in a hyphen, got %q", got)
	}
}
