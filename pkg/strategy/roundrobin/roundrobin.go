// Package roundrobin implements the round-robin debate strategy: every
// provider answers the initial prompt, critiques itself and the others
// for Rounds-1 further rounds (stopping early on convergence), and a
// synthesizer folds the final round's answers into one response.
package roundrobin

import (
	"context"
	"fmt"

	"github.com/jpollock/mars/pkg/audit"
	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/prompt"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/render"
	"github.com/jpollock/mars/pkg/simtext"
	"github.com/jpollock/mars/pkg/strategy"
)

// Strategy implements spec.md §4.4.
type Strategy struct{}

// New creates a round-robin strategy. It holds no state between runs.
func New() *Strategy { return &Strategy{} }

// Run executes the full INITIAL -> (CRITIQUE -> CONVERGENCE_CHECK)* ->
// SYNTHESIS state machine.
func (s *Strategy) Run(ctx context.Context, cfg debate.Config, provs map[string]providers.Provider, rndr *render.Renderer, wtr *audit.Writer) (*debate.DebateResult, error) {
	base, err := strategy.NewBase(cfg, provs, rndr, wtr)
	if err != nil {
		return nil, err
	}

	if err := wtr.WritePromptAndContext(cfg.Prompt, cfg.Context); err != nil {
		return nil, fmt.Errorf("roundrobin: %w", err)
	}

	result := &debate.DebateResult{Prompt: cfg.Prompt, Context: cfg.Context}

	initial := base.RunInitialRound(ctx, cfg, prompt.Initial(cfg.Prompt, cfg.Context))
	if err := wtr.WriteRoundResponses(1, initial.Answers); err != nil {
		return nil, fmt.Errorf("roundrobin: %w", err)
	}
	result.Rounds = append(result.Rounds, initial)

	if !initial.Succeeded() {
		return nil, strategy.ErrNoProvidersAlive
	}

	// Checked here too, not just at the top of the loop below: when
	// cfg.Rounds == 1 the critique loop never runs at all, and without
	// this a cancellation landing during/after the initial round would
	// fall straight through to synthesis and produce a final answer.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	current := initial
	for round := 2; round <= cfg.Rounds; round++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		critique := base.RunCritiqueRound(ctx, cfg, round, current, prompt.Critique)
		if err := wtr.WriteRoundCritiques(round, critique.Critiques); err != nil {
			return nil, fmt.Errorf("roundrobin: %w", err)
		}
		result.Rounds = append(result.Rounds, critique)

		if !critique.Succeeded() {
			break
		}

		converged, reason := checkConvergence(round, current, critique, cfg.Threshold)
		current = critique
		if converged {
			result.ConvergenceReason = reason
			if err := wtr.WriteConvergence(reason); err != nil {
				return nil, fmt.Errorf("roundrobin: %w", err)
			}
			break
		}
	}

	candidates := base.SynthesisOrder(cfg)
	synthesisMessages := prompt.Synthesis(current.Answers)
	synthesis, err := base.TrySynthesis(ctx, cfg, candidates, synthesisMessages)
	if err != nil {
		return nil, err
	}

	resolution, final := message.SplitFinalAnswer(synthesis.Content)
	result.Synthesis = &synthesis
	result.Resolution = resolution
	result.FinalAnswer = final

	if err := wtr.WriteResolution(resolution); err != nil {
		return nil, fmt.Errorf("roundrobin: %w", err)
	}
	if err := wtr.WriteFinalAnswer(final); err != nil {
		return nil, fmt.Errorf("roundrobin: %w", err)
	}

	return result, nil
}

// checkConvergence implements spec.md §4.4's convergence rule: compute
// the similarity ratio for every provider present in both prev and
// curr; converged iff that set is non-empty and every ratio meets
// threshold.
func checkConvergence(round int, prev, curr debate.DebateRound, threshold float64) (bool, string) {
	common := 0
	allAbove := true

	for name, prevResp := range prev.Answers {
		currResp, ok := curr.Answers[name]
		if !ok {
			continue
		}
		common++
		ratio := simtext.Ratio(prevResp.Content, currResp.Content)
		if ratio < threshold {
			allAbove = false
		}
	}

	if common == 0 || !allAbove {
		return false, ""
	}

	return true, fmt.Sprintf("Answers converged after round %d (similarity threshold %v reached)", round, threshold)
}
