package simtext

import (
	"regexp"
	"strings"
)

// MinSentenceLength is the shortest sentence (in runes, after trimming)
// that is kept for attribution metrics; shorter fragments are noise and
// are discarded entirely (spec.md §4.6).
const MinSentenceLength = 20

var terminatorRe = regexp.MustCompile(`[.!?](?:\s+|$)`)

// Sentences splits text on sentence terminators (.!?) followed by
// whitespace or end-of-string, trims each candidate, and keeps only
// those whose length is at least MinSentenceLength runes.
func Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	locs := terminatorRe.FindAllStringIndex(text, -1)
	var out []string
	start := 0
	for _, loc := range locs {
		end := loc[0] + 1 // include the terminator punctuation
		candidate := strings.TrimSpace(text[start:end])
		if len([]rune(candidate)) >= MinSentenceLength {
			out = append(out, candidate)
		}
		start = loc[1]
	}

	if start < len(text) {
		candidate := strings.TrimSpace(text[start:])
		if len([]rune(candidate)) >= MinSentenceLength {
			out = append(out, candidate)
		}
	}

	return out
}
