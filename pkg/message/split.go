package message

import "strings"

// SplitFinalAnswer splits a synthesis or judge response on the first
// line-boundary occurrence of FinalAnswerHeading. The text before the
// heading (trimmed) becomes resolution; the text after becomes the final
// answer. If the heading never appears on its own line, the entire
// content is the final answer and resolution is empty.
//
// When the heading appears more than once, only the first occurrence is
// treated as the separator (spec.md leaves this unspecified and
// recommends the first-occurrence policy).
func SplitFinalAnswer(content string) (resolution, final string) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == FinalAnswerHeading {
			resolution = strings.TrimSpace(strings.Join(lines[:i], "\n"))
			final = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			return resolution, final
		}
	}
	return "", strings.TrimSpace(content)
}
