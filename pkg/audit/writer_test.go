package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jpollock/mars/pkg/attribution"
	"github.com/jpollock/mars/pkg/cost"
	"github.com/jpollock/mars/pkg/message"
)

func TestWritePromptAndContextCreatesFile(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	if err := w.WritePromptAndContext("what is the answer?", []string{"background info"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "audit", "00-prompt-and-context.md")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty content")
	}
}

func TestWriteRoundResponsesNaming(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	answers := map[string]message.LLMResponse{
		"openai": {Provider: "openai", Model: "gpt-4o", Content: "an answer"},
	}
	if err := w.WriteRoundResponses(1, answers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "audit", "01-round-1-responses.md")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file %s to exist: %v", path, err)
	}
}

func TestWriteFinalAnswerAtRunRoot(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	if err := w.WriteFinalAnswer("the answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "final-answer.md")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected final-answer.md at run root: %v", err)
	}
}

func TestWriteAttributionAndCosts(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	attrReport := attribution.Report{
		Providers: []attribution.ProviderAttribution{{Provider: "openai", Contribution: 0.5}},
	}
	if err := w.WriteAttribution(attrReport); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	costReport := cost.Report{
		Providers: []cost.ProviderCost{{Provider: "openai", USD: 1.23, ShareOfTotal: 1.0}},
	}
	if err := w.WriteCosts(costReport); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "audit", "attribution.md")); err != nil {
		t.Fatalf("expected attribution.md: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "audit", "costs.md")); err != nil {
		t.Fatalf("expected costs.md: %v", err)
	}
}
