// Package audit writes the per-run audit trail to disk: one file per
// step of a debate, appended as the step completes so an interrupted
// run leaves a partial but consistent trail. Grounded on the teacher's
// append-only results writer, adapted from a single end-of-run JSONL
// dump to many small incremental files.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jpollock/mars/pkg/attribution"
	"github.com/jpollock/mars/pkg/cost"
	"github.com/jpollock/mars/pkg/message"
)

// Writer writes audit files under a single run directory. It is safe
// for concurrent use: every method takes an internal lock, opens its
// file, writes, and closes before returning, never holding a handle
// open between calls.
type Writer struct {
	mu      sync.Mutex
	dir     string
	auditor string
}

// New creates a Writer rooted at dir. The audit/ subtree and dir
// itself are created lazily on first write.
func New(dir string) *Writer {
	return &Writer{dir: dir, auditor: filepath.Join(dir, "audit")}
}

// Dir returns the run's output directory.
func (w *Writer) Dir() string { return w.dir }

func (w *Writer) write(relPath, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	full := filepath.Join(w.dir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("audit: create directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("audit: write %s: %w", relPath, err)
	}
	return nil
}

// WritePromptAndContext writes 00-prompt-and-context.md.
func (w *Writer) WritePromptAndContext(prompt string, context []string) error {
	var b []byte
	b = append(b, []byte("# Prompt and Context\n\n## Prompt\n\n"+prompt+"\n")...)
	for i, c := range context {
		b = append(b, []byte(fmt.Sprintf("\n## Context %d\n\n%s\n", i+1, c))...)
	}
	return w.write(filepath.Join("audit", "00-prompt-and-context.md"), string(b))
}

// WriteRoundResponses writes NN-round-N-responses.md.
func (w *Writer) WriteRoundResponses(round int, answers map[string]message.LLMResponse) error {
	content := renderResponseSection(fmt.Sprintf("Round %d Responses", round), answers)
	name := fmt.Sprintf("%02d-round-%d-responses.md", round, round)
	return w.write(filepath.Join("audit", name), content)
}

// WriteRoundCritiques writes NN-round-N-critiques.md, for rounds >= 2.
func (w *Writer) WriteRoundCritiques(round int, critiques map[string]message.LLMResponse) error {
	content := renderResponseSection(fmt.Sprintf("Round %d Critiques", round), critiques)
	name := fmt.Sprintf("%02d-round-%d-critiques.md", round, round)
	return w.write(filepath.Join("audit", name), content)
}

// WriteAttribution writes attribution.md.
func (w *Writer) WriteAttribution(report attribution.Report) error {
	var b []byte
	b = append(b, []byte("# Attribution\n\n")...)
	for _, p := range report.Providers {
		b = append(b, []byte(fmt.Sprintf(
			"## %s\n\n- contribution: %.4f\n- survival: %.4f\n- influence: %.4f\n- novel_in_synthesis: %.4f\n\n",
			p.Provider, p.Contribution, p.Survival, p.Influence, p.NovelInSynthesis,
		))...)
	}
	return w.write(filepath.Join("audit", "attribution.md"), string(b))
}

// WriteCosts writes costs.md.
func (w *Writer) WriteCosts(report cost.Report) error {
	var b []byte
	b = append(b, []byte("# Costs\n\n")...)
	for _, p := range report.Providers {
		b = append(b, []byte(fmt.Sprintf(
			"## %s\n\n- input_tokens: %d\n- output_tokens: %d\n- usd: %.6f\n- share_of_total: %.4f\n\n",
			p.Provider, p.InputTokens, p.OutputTokens, p.USD, p.ShareOfTotal,
		))...)
	}
	for _, w2 := range report.UnknownModelWarnings {
		b = append(b, []byte("> warning: "+w2+"\n")...)
	}
	return w.write(filepath.Join("audit", "costs.md"), string(b))
}

// WriteRoundDiffs writes round-diffs.md.
func (w *Writer) WriteRoundDiffs(diffs []attribution.RoundDiff) error {
	var b []byte
	b = append(b, []byte("# Round Diffs\n\n")...)
	for _, d := range diffs {
		b = append(b, []byte(fmt.Sprintf(
			"## %s: round %d -> %d\n\n- similarity: %.4f\n- added: %d\n- removed: %d\n- unchanged: %d\n\n",
			d.Provider, d.FromRound, d.ToRound, d.Similarity, d.SentencesAdded, d.SentencesRemoved, d.SentencesUnchanged,
		))...)
	}
	return w.write(filepath.Join("audit", "round-diffs.md"), string(b))
}

// WriteConvergence writes convergence.md.
func (w *Writer) WriteConvergence(reason string) error {
	return w.write(filepath.Join("audit", "convergence.md"), "# Convergence\n\n"+reason+"\n")
}

// WriteResolution writes resolution.md.
func (w *Writer) WriteResolution(resolution string) error {
	return w.write(filepath.Join("audit", "resolution.md"), "# Resolution\n\n"+resolution+"\n")
}

// WriteFinalAnswer writes final-answer.md at the run root (not under
// audit/). Its presence signals the run produced a synthesised
// answer; a failed run must not write this file.
func (w *Writer) WriteFinalAnswer(answer string) error {
	return w.write("final-answer.md", "# Final Answer\n\n"+answer+"\n")
}

func renderResponseSection(title string, responses map[string]message.LLMResponse) string {
	var b []byte
	b = append(b, []byte("# "+title+"\n\n")...)
	for name, resp := range responses {
		b = append(b, []byte(fmt.Sprintf("## %s (%s)\n\n%s\n\n", name, resp.Model, resp.Content))...)
	}
	return string(b)
}
