package judge

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jpollock/mars/pkg/audit"
	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/render"
	"github.com/jpollock/mars/pkg/strategy"
)

func newTestHarness(t *testing.T) (*render.Renderer, *audit.Writer) {
	t.Helper()
	return render.New(io.Discard), audit.New(t.TempDir())
}

func TestRunCallsJudgeAfterInitialRound(t *testing.T) {
	rndr, wtr := newTestHarness(t)

	anthropic := newFakeProvider("anthropic",
		"anthropic's initial answer",
		"Weighing both answers.\n## Final Answer\nThe answer is 4.",
	)
	openai := newFakeProvider("openai", "openai's initial answer")

	cfg := debate.Config{
		Prompt:        "what is 2+2?",
		Providers:     []debate.ProviderSpec{{Name: "anthropic"}, {Name: "openai"}},
		Mode:          debate.ModeJudge,
		Rounds:        1,
		JudgeProvider: "anthropic",
		MaxTokens:     256,
		MaxRetries:    0,
	}
	provs := map[string]providers.Provider{"anthropic": anthropic, "openai": openai}

	result, err := New().Run(context.Background(), cfg, provs, rndr, wtr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Rounds) != 1 {
		t.Fatalf("expected exactly 1 initial round, got %d", len(result.Rounds))
	}
	if result.Resolution != "Weighing both answers." {
		t.Fatalf("unexpected resolution: %q", result.Resolution)
	}
	if result.FinalAnswer != "The answer is 4." {
		t.Fatalf("unexpected final answer: %q", result.FinalAnswer)
	}
	if anthropic.calls != 2 {
		t.Fatalf("expected judge provider to be called twice (initial + judge), got %d", anthropic.calls)
	}
}

func TestRunFailsWhenJudgeProviderFails(t *testing.T) {
	rndr, wtr := newTestHarness(t)

	anthropic := newFakeProvider("anthropic", "anthropic's initial answer")
	judgeP := newFakeProvider("judgeP", "unused")
	judgeP.failAfter = 0

	cfg := debate.Config{
		Prompt:        "what is 2+2?",
		Providers:     []debate.ProviderSpec{{Name: "anthropic"}, {Name: "judgeP"}},
		Mode:          debate.ModeJudge,
		Rounds:        1,
		JudgeProvider: "judgeP",
		MaxTokens:     256,
		MaxRetries:    0,
	}
	provs := map[string]providers.Provider{"anthropic": anthropic, "judgeP": judgeP}

	_, err := New().Run(context.Background(), cfg, provs, rndr, wtr)
	if !errors.Is(err, strategy.ErrJudgeFailed) {
		t.Fatalf("expected ErrJudgeFailed, got %v", err)
	}
}

func TestRunReturnsErrNoProvidersAliveWhenInitialRoundFails(t *testing.T) {
	rndr, wtr := newTestHarness(t)

	anthropic := newFakeProvider("anthropic", "unused")
	anthropic.failAfter = 0

	cfg := debate.Config{
		Prompt:        "what is 2+2?",
		Providers:     []debate.ProviderSpec{{Name: "anthropic"}},
		Mode:          debate.ModeJudge,
		Rounds:        1,
		JudgeProvider: "anthropic",
		MaxTokens:     256,
		MaxRetries:    0,
	}
	provs := map[string]providers.Provider{"anthropic": anthropic}

	_, err := New().Run(context.Background(), cfg, provs, rndr, wtr)
	if !errors.Is(err, strategy.ErrNoProvidersAlive) {
		t.Fatalf("expected ErrNoProvidersAlive, got %v", err)
	}
}

func TestRunDetectsCancellationBetweenInitialRoundAndJudge(t *testing.T) {
	rndr, wtr := newTestHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// openai streams one chunk and cancels ctx as a side effect, so the
	// initial round still succeeds even though ctx is already cancelled
	// by the time Run would otherwise move on to the judge call.
	anthropic := newFakeProvider("anthropic", "unused")
	openai := &cancelingProvider{name: "openai", cancel: cancel}

	cfg := debate.Config{
		Prompt:        "what is 2+2?",
		Providers:     []debate.ProviderSpec{{Name: "anthropic"}, {Name: "openai"}},
		Mode:          debate.ModeJudge,
		Rounds:        1,
		JudgeProvider: "anthropic",
		MaxTokens:     256,
		MaxRetries:    0,
		Verbose:       true,
	}
	provs := map[string]providers.Provider{"anthropic": anthropic, "openai": openai}

	result, err := New().Run(ctx, cfg, provs, rndr, wtr)
	if result != nil {
		t.Fatalf("expected no result once cancellation is detected, got %+v", result)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if anthropic.calls != 0 {
		t.Fatalf("expected the judge provider to never be called once cancellation is detected, got %d calls", anthropic.calls)
	}
}
