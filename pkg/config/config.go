// Package config loads a MARS debate configuration from a layered
// stack of sources — YAML file, environment, and home-directory
// defaults — the same way the teacher's config package layers
// sources, adapted to the fields a debate run actually needs.
package config

import (
	"fmt"

	"github.com/jpollock/mars/pkg/debate"
)

// ProviderConfig names a provider and, optionally, the model it should
// use, mirroring debate.ProviderSpec with tags a file/env loader can
// populate.
type ProviderConfig struct {
	Name  string `yaml:"name" koanf:"name" validate:"required"`
	Model string `yaml:"model,omitempty" koanf:"model"`
}

// Config is the on-disk/environment representation of a debate run.
// Every field mirrors debate.Config; LoadConfig's job is to produce a
// populated Config and hand it off as a debate.Config via ToDebateConfig.
type Config struct {
	Providers         []ProviderConfig `yaml:"providers" koanf:"providers" validate:"required,min=1,dive"`
	Mode              string           `yaml:"mode" koanf:"mode" validate:"required,oneof=round-robin judge"`
	Rounds            int              `yaml:"rounds" koanf:"rounds" validate:"min=1"`
	JudgeProvider     string           `yaml:"judge_provider,omitempty" koanf:"judge_provider"`
	SynthesisProvider string           `yaml:"synthesis_provider,omitempty" koanf:"synthesis_provider"`
	Threshold         float64          `yaml:"threshold" koanf:"threshold" validate:"gte=0,lte=1"`
	MaxTokens         int              `yaml:"max_tokens" koanf:"max_tokens" validate:"gt=0"`
	Temperature       *float64         `yaml:"temperature,omitempty" koanf:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxRetries        int              `yaml:"max_retries" koanf:"max_retries" validate:"gte=0"`
	OutputDir         string           `yaml:"output_dir,omitempty" koanf:"output_dir"`
	Verbose           bool             `yaml:"verbose,omitempty" koanf:"verbose"`

	Credentials Credentials `yaml:"-" koanf:"-"`
}

// Credentials carries the secrets and endpoints resolved from the
// environment, a local .env file, and a user-home config file — never
// from the debate YAML itself, so a config file can be committed to a
// repo without leaking keys.
type Credentials struct {
	OpenAIKey        string
	AnthropicKey     string
	GoogleKey        string
	OllamaBaseURL    string
	DefaultProviders []string
}

// hasProvider reports whether name is among the configured providers.
func (c *Config) hasProvider(name string) bool {
	for _, p := range c.Providers {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Validate checks invariants the validator struct tags can't express:
// distinct provider names, judge/synthesis provider membership.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}

	if c.Mode == string(debate.ModeJudge) {
		if c.JudgeProvider == "" {
			return fmt.Errorf("judge_provider is required when mode=judge")
		}
		if !c.hasProvider(c.JudgeProvider) {
			return fmt.Errorf("judge_provider %q must appear in providers", c.JudgeProvider)
		}
	}

	if c.SynthesisProvider != "" && !c.hasProvider(c.SynthesisProvider) {
		return fmt.Errorf("synthesis_provider %q must appear in providers", c.SynthesisProvider)
	}

	return nil
}

// ToDebateConfig converts the loaded file/env representation into the
// debate.Config a strategy run needs, filling in prompt and context —
// inputs that only ever arrive from a single invocation, never from a
// config file.
func (c *Config) ToDebateConfig(prompt string, context []string) debate.Config {
	providers := make([]debate.ProviderSpec, len(c.Providers))
	for i, p := range c.Providers {
		providers[i] = debate.ProviderSpec{Name: p.Name, Model: p.Model}
	}

	return debate.Config{
		Prompt:            prompt,
		Context:           context,
		Providers:         providers,
		Mode:              debate.Mode(c.Mode),
		Rounds:            c.Rounds,
		JudgeProvider:     c.JudgeProvider,
		SynthesisProvider: c.SynthesisProvider,
		Threshold:         c.Threshold,
		MaxTokens:         c.MaxTokens,
		Temperature:       c.Temperature,
		MaxRetries:        c.MaxRetries,
		OutputDir:         c.OutputDir,
		Verbose:           c.Verbose,
		Credentials: debate.Credentials{
			OpenAIKey:     c.Credentials.OpenAIKey,
			AnthropicKey:  c.Credentials.AnthropicKey,
			GoogleKey:     c.Credentials.GoogleKey,
			OllamaBaseURL: c.Credentials.OllamaBaseURL,
		},
	}
}
