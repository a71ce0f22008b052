// Package engine is the library entry point a debate run is driven
// through: it resolves configured provider names into live Provider
// instances, picks the strategy for the configured mode, runs it, and
// (only on a successful, non-cancelled result) folds in attribution and
// cost analysis.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jpollock/mars/pkg/attribution"
	"github.com/jpollock/mars/pkg/audit"
	"github.com/jpollock/mars/pkg/cost"
	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
	"github.com/jpollock/mars/pkg/render"
	"github.com/jpollock/mars/pkg/strategy"
	"github.com/jpollock/mars/pkg/strategy/judge"
	"github.com/jpollock/mars/pkg/strategy/roundrobin"
)

// Run validates cfg, instantiates every configured provider, runs the
// strategy matching cfg.Mode, and — only when the run finished
// successfully and was not cancelled — computes attribution and cost
// reports over the result. The attribution and cost reports are nil
// whenever the debate result itself is nil or the run was cancelled.
func Run(ctx context.Context, cfg debate.Config) (*debate.DebateResult, *attribution.Report, *cost.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("engine: %w", err)
	}

	provs, err := instantiateProviders(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("engine: %w", err)
	}

	strat, err := selectStrategy(cfg.Mode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("engine: %w", err)
	}

	slog.Info("starting debate", "mode", cfg.Mode, "rounds", cfg.Rounds, "providers", cfg.ProviderNames())

	runDir := filepath.Join(cfg.OutputDir, audit.RunDirName(time.Now(), cfg.Prompt))
	wtr := audit.New(runDir)
	rndr := render.New(render.DefaultOutput())

	debateResult, err := strat.Run(ctx, cfg, provs, rndr, wtr)
	if err != nil {
		slog.Error("debate run failed", "error", err)
		return nil, nil, nil, err
	}
	debateResult.OutputDir = runDir

	if ctx.Err() != nil {
		slog.Warn("debate run cancelled", "error", ctx.Err())
		return debateResult, nil, nil, ctx.Err()
	}

	providerOrder := cfg.ProviderNames()

	attrReport := attribution.Analyze(debateResult, providerOrder)
	if err := wtr.WriteAttribution(attrReport); err != nil {
		return nil, nil, nil, fmt.Errorf("engine: %w", err)
	}
	if err := wtr.WriteRoundDiffs(attrReport.RoundDiff); err != nil {
		return nil, nil, nil, fmt.Errorf("engine: %w", err)
	}

	costReport := cost.Analyze(debateResult, providerOrder)
	if err := wtr.WriteCosts(costReport); err != nil {
		return nil, nil, nil, fmt.Errorf("engine: %w", err)
	}
	for _, warning := range costReport.UnknownModelWarnings {
		rndr.LogWarning(warning)
		slog.Warn("cost analysis found a model with no known price", "detail", warning)
	}

	slog.Info("debate finished", "rounds_completed", len(debateResult.Rounds), "convergence", debateResult.ConvergenceReason != "")

	return debateResult, &attrReport, &costReport, nil
}

// instantiateProviders builds a live Provider for every name in
// cfg.Providers, keyed by name. Each provider's own ConfigFromMap falls
// back to reading its credential directly from the environment, but
// cfg.Credentials (resolved with the full process-env/.env/home-config
// precedence) is passed through explicitly first so that precedence is
// honored even when the winning tier is the .env file or the home
// config, neither of which a provider's own os.Getenv fallback would
// ever see.
func instantiateProviders(cfg debate.Config) (map[string]providers.Provider, error) {
	provs := make(map[string]providers.Provider, len(cfg.Providers))
	for _, spec := range cfg.Providers {
		m := registry.Config{}
		if spec.Model != "" {
			m["model"] = spec.Model
		}
		credentialConfig(spec.Name, cfg.Credentials, m)
		p, err := providers.Create(spec.Name, m)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", spec.Name, err)
		}
		provs[spec.Name] = p
	}
	return provs, nil
}

// credentialConfig sets the registry.Config key a named provider's
// ConfigFromMap reads its credential from, when cfg.Credentials
// resolved a non-empty value for it. Providers outside this set (e.g.
// bedrock, replicate) keep relying on their own ConfigFromMap fallback.
func credentialConfig(providerName string, creds debate.Credentials, m registry.Config) {
	switch providerName {
	case "openai":
		if creds.OpenAIKey != "" {
			m["api_key"] = creds.OpenAIKey
		}
	case "anthropic":
		if creds.AnthropicKey != "" {
			m["api_key"] = creds.AnthropicKey
		}
	case "google":
		if creds.GoogleKey != "" {
			m["api_key"] = creds.GoogleKey
		}
	case "ollama":
		if creds.OllamaBaseURL != "" {
			m["base_url"] = creds.OllamaBaseURL
		}
	}
}

// ErrUnknownMode is returned when cfg.Mode does not match any known
// strategy. debate.Config.Validate already rejects this before Run
// reaches here, but selectStrategy stays defensive since Mode is a
// plain string type.
var ErrUnknownMode = fmt.Errorf("engine: unknown debate mode")

func selectStrategy(mode debate.Mode) (strategy.Strategy, error) {
	switch mode {
	case debate.ModeRoundRobin:
		return roundrobin.New(), nil
	case debate.ModeJudge:
		return judge.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
