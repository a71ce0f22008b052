package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpollock/mars/pkg/config"
	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/engine"
)

// DebateCmd runs a debate over a prompt, the MARS analogue of the
// teacher's ScanCmd: it merges a YAML config file with flag overrides,
// builds a debate.Config, and hands it to pkg/engine.
type DebateCmd struct {
	Prompt string `arg:"" help:"The prompt to debate, or @path/to/file." name:"prompt"`

	Context           []string      `help:"Context text, repeatable (text or @file)." short:"x" name:"context"`
	Provider          []string      `help:"Provider name or name:model, repeatable." short:"p" name:"provider"`
	ModelOverride     []string      `help:"Model override as name:model, repeatable." name:"model-override"`
	Mode              string        `help:"Debate mode." enum:"round-robin,judge" default:"round-robin"`
	Rounds            int           `help:"Number of rounds." default:"3"`
	JudgeProvider     string        `help:"Judge provider name (required when mode=judge)." name:"judge-provider"`
	SynthesisProvider string        `help:"Preferred synthesis provider." name:"synthesis-provider"`
	Threshold         float64       `help:"Convergence similarity threshold." default:"0.9"`
	MaxTokens         int           `help:"Max tokens per call." default:"2048" name:"max-tokens"`
	Temperature       *float64      `help:"Sampling temperature (omit for provider default)."`
	MaxRetries        int           `help:"Max retries per call." default:"2" name:"max-retries"`
	OutputDir         string        `help:"Audit output directory." default:"./mars-runs" name:"output-dir"`
	Verbose           bool          `help:"Stream output sequentially instead of running concurrently." short:"v"`
	Timeout           time.Duration `help:"Overall run timeout." default:"15m"`
}

func (d *DebateCmd) Validate() error {
	if d.Mode == string(debate.ModeJudge) && d.JudgeProvider == "" && CLI.ConfigFile == "" {
		return fmt.Errorf("judge mode requires --judge-provider or a config file naming one")
	}
	return nil
}

func (d *DebateCmd) Run() error {
	cfg, err := d.buildConfig()
	if err != nil {
		return err
	}

	ctx, cancel := d.setupContext()
	defer cancel()

	result, attr, costReport, err := engine.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println(result.FinalAnswer)
	if len(costReport.Providers) > 0 {
		var total float64
		for _, p := range costReport.Providers {
			total += p.USD
		}
		fmt.Fprintf(os.Stderr, "\ntotal cost: $%.6f across %d provider(s)\n", total, len(attr.Providers))
	}
	fmt.Fprintf(os.Stderr, "audit trail: %s\n", result.OutputDir)

	return nil
}

// buildConfig merges an optional YAML config file with CLI flag
// overrides — flags win, matching the teacher's "CLI flags override
// YAML config" rule in runScan.
func (d *DebateCmd) buildConfig() (debate.Config, error) {
	var fileCfg *config.Config
	if CLI.ConfigFile != "" {
		loaded, err := config.LoadConfig(CLI.ConfigFile)
		if err != nil {
			return debate.Config{}, fmt.Errorf("debate: %w", err)
		}
		fileCfg = loaded
	} else {
		fileCfg = &config.Config{
			Mode:      "round-robin",
			Rounds:    3,
			Threshold: 0.9,
			MaxTokens: 2048,
		}
	}

	prompt, err := resolveTextOrFile(d.Prompt)
	if err != nil {
		return debate.Config{}, fmt.Errorf("debate: prompt: %w", err)
	}

	context := make([]string, len(d.Context))
	for i, c := range d.Context {
		resolved, err := resolveTextOrFile(c)
		if err != nil {
			return debate.Config{}, fmt.Errorf("debate: context %d: %w", i, err)
		}
		context[i] = resolved
	}

	// Credentials are resolved here regardless of whether a config file
	// was given: config.LoadConfig already does this internally when a
	// file is loaded, but the no-file default path above never would
	// otherwise, silently dropping the .env and home-config tiers.
	fileCfg.Credentials = config.LoadCredentials()

	cfg := fileCfg.ToDebateConfig(prompt, context)

	if len(d.Provider) > 0 {
		cfg.Providers = parseProviderSpecs(d.Provider)
	}
	for _, override := range d.ModelOverride {
		name, model, ok := strings.Cut(override, ":")
		if !ok {
			continue
		}
		for i := range cfg.Providers {
			if cfg.Providers[i].Name == name {
				cfg.Providers[i].Model = model
			}
		}
	}

	if d.Mode != "" {
		cfg.Mode = debate.Mode(d.Mode)
	}
	if d.Rounds > 0 {
		cfg.Rounds = d.Rounds
	}
	if d.JudgeProvider != "" {
		cfg.JudgeProvider = d.JudgeProvider
	}
	if d.SynthesisProvider != "" {
		cfg.SynthesisProvider = d.SynthesisProvider
	}
	if d.Threshold > 0 {
		cfg.Threshold = d.Threshold
	}
	if d.MaxTokens > 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	if d.Temperature != nil {
		cfg.Temperature = d.Temperature
	}
	if d.MaxRetries > 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	if d.OutputDir != "" {
		cfg.OutputDir = d.OutputDir
	}
	cfg.Verbose = d.Verbose

	if err := cfg.Validate(); err != nil {
		return debate.Config{}, fmt.Errorf("debate: %w", err)
	}

	return cfg, nil
}

// parseProviderSpecs turns "name" or "name:model" flag values into
// debate.ProviderSpec entries, preserving flag order.
func parseProviderSpecs(flags []string) []debate.ProviderSpec {
	specs := make([]debate.ProviderSpec, len(flags))
	for i, f := range flags {
		name, model, _ := strings.Cut(f, ":")
		specs[i] = debate.ProviderSpec{Name: name, Model: model}
	}
	return specs
}

// resolveTextOrFile implements the spec's "@path reads file contents"
// rule for prompt and context tokens.
func resolveTextOrFile(token string) (string, error) {
	path, ok := strings.CutPrefix(token, "@")
	if !ok {
		return token, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// setupContext creates a context cancelled by SIGINT/SIGTERM or the
// configured overall timeout, whichever comes first.
func (d *DebateCmd) setupContext() (context.Context, context.CancelFunc) {
	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(baseCtx, d.Timeout)
	return ctx, func() {
		stop()
		cancel()
	}
}
