// Package judge implements the judge debate strategy: every provider
// answers the initial prompt once, then a single designated judge
// provider resolves the set of answers into one response. There is no
// critique phase and no synthesis fallback.
package judge

import (
	"context"
	"fmt"

	"github.com/jpollock/mars/pkg/audit"
	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/prompt"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/render"
	"github.com/jpollock/mars/pkg/strategy"
)

// Strategy implements spec.md §4.5.
type Strategy struct{}

// New creates a judge strategy. It holds no state between runs.
func New() *Strategy { return &Strategy{} }

// Run executes one initial round followed by a single judge call.
func (s *Strategy) Run(ctx context.Context, cfg debate.Config, provs map[string]providers.Provider, rndr *render.Renderer, wtr *audit.Writer) (*debate.DebateResult, error) {
	base, err := strategy.NewBase(cfg, provs, rndr, wtr)
	if err != nil {
		return nil, err
	}

	if err := wtr.WritePromptAndContext(cfg.Prompt, cfg.Context); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}

	result := &debate.DebateResult{Prompt: cfg.Prompt, Context: cfg.Context}

	initial := base.RunInitialRound(ctx, cfg, prompt.Initial(cfg.Prompt, cfg.Context))
	if err := wtr.WriteRoundResponses(1, initial.Answers); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	result.Rounds = append(result.Rounds, initial)

	if !initial.Succeeded() {
		return nil, strategy.ErrNoProvidersAlive
	}

	// Judge mode has no critique loop at all, so this is the only
	// place a cancellation landing during/after the initial round can
	// be caught before the judge call would otherwise produce a final
	// answer for a cancelled run.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	judgment, err := base.CallJudge(ctx, cfg, cfg.JudgeProvider, prompt.Judge(initial.Answers))
	if err != nil {
		return nil, err
	}

	resolution, final := message.SplitFinalAnswer(judgment.Content)
	result.Synthesis = &judgment
	result.Resolution = resolution
	result.FinalAnswer = final

	if err := wtr.WriteResolution(resolution); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	if err := wtr.WriteFinalAnswer(final); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}

	return result, nil
}
