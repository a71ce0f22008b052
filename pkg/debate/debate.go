// Package debate defines the data model a strategy produces: rounds,
// the final result, and the configuration a run is driven by.
package debate

import (
	"fmt"

	"github.com/jpollock/mars/pkg/message"
)

// Mode selects which strategy drives a debate.
type Mode string

const (
	// ModeRoundRobin runs critique rounds with convergence detection
	// followed by synthesis fallback across providers.
	ModeRoundRobin Mode = "round-robin"
	// ModeJudge runs a single initial round followed by one judge call.
	ModeJudge Mode = "judge"
)

// DebateRound holds one round's worth of provider output. Index 0 is
// reserved for synthesis and is never produced by a strategy's round
// loop; strategies emit rounds 1..R. Providers that failed in a round
// are simply absent from the maps — a round is valid as long as at
// least one provider is present.
type DebateRound struct {
	Index     int
	Answers   map[string]message.LLMResponse
	Critiques map[string]message.LLMResponse
}

// Succeeded reports whether at least one provider answered this round.
func (r DebateRound) Succeeded() bool {
	return len(r.Answers) > 0
}

// DebateResult is the complete record of one debate run. Rounds are
// appended in order and never reordered or mutated after the fact.
type DebateResult struct {
	Prompt            string
	Context           []string
	Rounds            []DebateRound
	Synthesis         *message.LLMResponse
	FinalAnswer       string
	Resolution        string
	ConvergenceReason string
	// OutputDir is the per-run directory (<output-dir>/<timestamp>_<slug>/)
	// the audit trail was written under. Set by pkg/engine once the
	// directory is resolved, not by the strategy itself.
	OutputDir string
}

// ProviderSpec names a provider and, optionally, overrides the model
// it should use for this run.
type ProviderSpec struct {
	Name  string
	Model string
}

// Credentials carries the provider secrets and endpoints resolved
// ambiently (process environment, a local .env, a user-home config
// file) through to provider instantiation. Never populated from a
// debate config file itself.
type Credentials struct {
	OpenAIKey     string
	AnthropicKey  string
	GoogleKey     string
	OllamaBaseURL string
}

// Config is the immutable configuration for a single debate run. It
// carries both the run's static options (providers, mode, thresholds)
// and the per-invocation inputs (prompt, context) that a strategy needs
// to build its initial round: a run only ever has one of each, so
// splitting them into a second argument threaded through every strategy
// and the engine buys no real separation.
type Config struct {
	Prompt            string
	Context           []string
	Providers         []ProviderSpec
	Mode              Mode
	Rounds            int
	JudgeProvider     string
	SynthesisProvider string
	Threshold         float64
	MaxTokens         int
	Temperature       *float64
	MaxRetries        int
	OutputDir         string
	Verbose           bool
	Credentials       Credentials
}

// ProviderNames returns the configured provider names in registration
// order.
func (c Config) ProviderNames() []string {
	names := make([]string, len(c.Providers))
	for i, p := range c.Providers {
		names[i] = p.Name
	}
	return names
}

// hasProvider reports whether name appears among the configured
// providers.
func (c Config) hasProvider(name string) bool {
	for _, p := range c.Providers {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Validate checks every invariant spec.md places on DebateConfig that
// a struct tag cannot express on its own: distinct provider names,
// judge/synthesis provider membership, and range constraints.
func (c Config) Validate() error {
	if c.Prompt == "" {
		return fmt.Errorf("debate config: prompt must not be empty")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("debate config: at least one provider is required")
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("debate config: provider name must not be empty")
		}
		if seen[p.Name] {
			return fmt.Errorf("debate config: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}

	switch c.Mode {
	case ModeRoundRobin, ModeJudge:
	default:
		return fmt.Errorf("debate config: unknown mode %q", c.Mode)
	}

	if c.Rounds < 1 {
		return fmt.Errorf("debate config: rounds must be >= 1, got %d", c.Rounds)
	}

	if c.Mode == ModeJudge {
		if c.JudgeProvider == "" {
			return fmt.Errorf("debate config: judge_provider is required when mode=judge")
		}
		if !c.hasProvider(c.JudgeProvider) {
			return fmt.Errorf("debate config: judge_provider %q must appear in providers", c.JudgeProvider)
		}
	}

	if c.SynthesisProvider != "" && !c.hasProvider(c.SynthesisProvider) {
		return fmt.Errorf("debate config: synthesis_provider %q must appear in providers", c.SynthesisProvider)
	}

	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("debate config: threshold must be in [0,1], got %v", c.Threshold)
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("debate config: max_tokens must be > 0, got %d", c.MaxTokens)
	}

	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("debate config: temperature must be in [0,2], got %v", *c.Temperature)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("debate config: max_retries must be >= 0, got %d", c.MaxRetries)
	}

	return nil
}
