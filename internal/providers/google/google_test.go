package google

import (
	"testing"

	"github.com/jpollock/mars/pkg/message"
)

func TestSplitSystemExtractsSystemInstruction(t *testing.T) {
	system, contents := splitSystem([]message.Message{
		message.NewSystem("be concise"),
		message.NewUser("hi"),
		message.NewAssistant("hello"),
	})

	if system == nil || len(system.Parts) != 1 || system.Parts[0].Text != "be concise" {
		t.Fatalf("expected system instruction to carry system text, got %+v", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 non-system turns, got %d", len(contents))
	}
	if contents[0].Role != "user" {
		t.Fatalf("expected first turn to be user role, got %q", contents[0].Role)
	}
	if contents[1].Role != "model" {
		t.Fatalf("expected assistant turn mapped to model role, got %q", contents[1].Role)
	}
}

func TestConfigFromMapDefaultsModel(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{"api_key": "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != defaultModel {
		t.Fatalf("expected default model, got %q", cfg.Model)
	}
	if cfg.APIKey != "test-key" {
		t.Fatalf("expected api key to be read from map, got %q", cfg.APIKey)
	}
}

func TestNameAndDefaultModel(t *testing.T) {
	p, err := NewFromConfig(Config{APIKey: "k", Model: "gemini-1.5-pro"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "google" {
		t.Fatalf("unexpected name: %s", p.Name())
	}
	if p.DefaultModel() != "gemini-1.5-pro" {
		t.Fatalf("unexpected default model: %s", p.DefaultModel())
	}
}
