// Package strategy defines the contract a debate-orchestration strategy
// implements, plus the fan-out machinery every strategy shares: running
// one round across an ordered provider list, quiet or verbose. Concrete
// strategies live in pkg/strategy/roundrobin and pkg/strategy/judge.
package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jpollock/mars/pkg/audit"
	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/dispatch"
	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/render"
	"github.com/jpollock/mars/pkg/retry"
)

// ErrNoProvidersAlive is returned when a round produces zero successful
// answers and the strategy has no further fallback to try.
var ErrNoProvidersAlive = errors.New("strategy: no providers produced an answer")

// ErrSynthesisExhausted wraps the last cause when every candidate
// synthesizer in the fallback list has failed.
var ErrSynthesisExhausted = errors.New("strategy: synthesis exhausted all candidate providers")

// ErrJudgeFailed wraps the underlying cause when the judge provider
// fails after retry in judge mode.
var ErrJudgeFailed = errors.New("strategy: judge provider failed")

// Strategy orchestrates a complete debate run: the initial round,
// whatever intermediate rounds its mode defines, and the production of
// a final answer.
type Strategy interface {
	Run(ctx context.Context, cfg debate.Config, provs map[string]providers.Provider, rndr *render.Renderer, wtr *audit.Writer) (*debate.DebateResult, error)
}

// BuildCritiquePrompt builds a single provider's critique messages from
// the previous round's answers. Strategies pass a pkg/prompt function
// matching this shape into Base.RunCritiqueRound.
type BuildCritiquePrompt func(providerName string, own message.LLMResponse, others map[string]message.LLMResponse) []message.Message

// Base holds the pieces every concrete strategy needs: the providers in
// registration order (not map iteration order, which Go does not
// guarantee), the renderer, and the audit writer. Strategies build a
// Base per run with NewBase rather than duplicating this plumbing (composition over inheritance,
// per the teacher's harness/evaluator split).
type Base struct {
	Ordered []providers.Provider
	Rndr    *render.Renderer
	Wtr     *audit.Writer
}

// NewBase resolves cfg's provider names against the instantiated
// provider map, preserving cfg's registration order.
func NewBase(cfg debate.Config, provs map[string]providers.Provider, rndr *render.Renderer, wtr *audit.Writer) (Base, error) {
	ordered := make([]providers.Provider, 0, len(cfg.Providers))
	for _, spec := range cfg.Providers {
		p, ok := provs[spec.Name]
		if !ok {
			return Base{}, fmt.Errorf("strategy: provider %q configured but not instantiated", spec.Name)
		}
		ordered = append(ordered, p)
	}
	return Base{Ordered: ordered, Rndr: rndr, Wtr: wtr}, nil
}

// dispatchOptions builds the dispatch.Options for a round, wiring the
// renderer in as the failure logger.
func (b Base) dispatchOptions(cfg debate.Config) dispatch.Options {
	return dispatch.Options{
		Verbose:    cfg.Verbose,
		MaxRetries: cfg.MaxRetries,
		Log:        b.Rndr.LogFailure,
	}
}

// CallOptions builds the providers.CallOptions shared by every call a
// strategy makes in a given run.
func (b Base) CallOptions(cfg debate.Config) providers.CallOptions {
	return providers.CallOptions{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
}

// RunInitialRound dispatches one generate (or stream) call per provider
// and returns a populated DebateRound with Index 1. Both strategies use
// exactly the same initial-round semantics (spec.md §4.4, reused by
// §4.5).
func (b Base) RunInitialRound(ctx context.Context, cfg debate.Config, messages []message.Message) debate.DebateRound {
	b.Rndr.StartProgress("round 1")
	defer b.Rndr.StopProgress()

	call := func(ctx context.Context, p providers.Provider) (message.LLMResponse, error) {
		if cfg.Verbose {
			return streamToSink(ctx, p, messages, b.CallOptions(cfg), b.Rndr.StreamSink(p.Name()))
		}
		return p.Generate(ctx, messages, b.CallOptions(cfg))
	}

	answers := dispatch.Dispatch(ctx, b.Ordered, call, b.dispatchOptions(cfg))
	b.Rndr.Advance(1.0)

	return debate.DebateRound{Index: 1, Answers: answers}
}

// RunCritiqueRound dispatches one critique call per provider still
// present in prev, building each provider's prompt from prev's answers
// via buildPrompt.
func (b Base) RunCritiqueRound(ctx context.Context, cfg debate.Config, index int, prev debate.DebateRound, buildPrompt BuildCritiquePrompt) debate.DebateRound {
	b.Rndr.StartProgress(fmt.Sprintf("round %d", index))
	defer b.Rndr.StopProgress()

	alive := make([]providers.Provider, 0, len(prev.Answers))
	for _, p := range b.Ordered {
		if _, ok := prev.Answers[p.Name()]; ok {
			alive = append(alive, p)
		}
	}

	call := func(ctx context.Context, p providers.Provider) (message.LLMResponse, error) {
		own := prev.Answers[p.Name()]
		messages := buildPrompt(p.Name(), own, prev.Answers)
		if cfg.Verbose {
			return streamToSink(ctx, p, messages, b.CallOptions(cfg), b.Rndr.StreamSink(p.Name()))
		}
		return p.Generate(ctx, messages, b.CallOptions(cfg))
	}

	critiques := dispatch.Dispatch(ctx, alive, call, b.dispatchOptions(cfg))
	b.Rndr.Advance(1.0)

	return debate.DebateRound{Index: index, Critiques: critiques, Answers: critiques}
}

// streamToSink drains a provider's stream to w (used only in verbose
// mode) and assembles the final LLMResponse from the concatenated
// chunks plus the stream's reported usage. Retry is only safe before the
// first chunk reaches w: once any chunk has been written, a later
// failure is wrapped with retry.NonRetryable so the caller's retry.Do
// never replays this call and duplicates output already delivered.
func streamToSink(ctx context.Context, p providers.Provider, messages []message.Message, opts providers.CallOptions, w interface{ Write([]byte) (int, error) }) (message.LLMResponse, error) {
	s, err := p.Stream(ctx, messages, opts)
	if err != nil {
		return message.LLMResponse{}, err
	}

	var content []byte
	var wrote bool
	for {
		chunk, ok, err := s.Next(ctx)
		if err != nil {
			if wrote {
				return message.LLMResponse{}, retry.NonRetryable(err)
			}
			return message.LLMResponse{}, err
		}
		if !ok {
			break
		}
		content = append(content, chunk...)
		_, _ = w.Write([]byte(chunk))
		wrote = true
	}
	_, _ = w.Write([]byte("\n"))

	usage, _ := s.Usage()
	model := opts.Model
	if model == "" {
		model = p.DefaultModel()
	}
	return message.LLMResponse{Provider: p.Name(), Model: model, Content: string(content), Usage: usage}, nil
}

// SynthesisOrder resolves the ordered candidate list for synthesis
// fallback per spec.md §4.4: the configured synthesis provider (if set
// and present) leads, otherwise anthropic then openai lead; either way
// the remainder follows in registration order with no duplicates.
func (b Base) SynthesisOrder(cfg debate.Config) []providers.Provider {
	seen := make(map[string]bool, len(b.Ordered))
	var head []providers.Provider

	addIfPresent := func(name string) {
		if name == "" || seen[name] {
			return
		}
		for _, p := range b.Ordered {
			if p.Name() == name {
				head = append(head, p)
				seen[name] = true
				return
			}
		}
	}

	if cfg.SynthesisProvider != "" {
		addIfPresent(cfg.SynthesisProvider)
	} else {
		addIfPresent("anthropic")
		addIfPresent("openai")
	}

	ordered := make([]providers.Provider, 0, len(b.Ordered))
	ordered = append(ordered, head...)
	for _, p := range b.Ordered {
		if !seen[p.Name()] {
			ordered = append(ordered, p)
			seen[p.Name()] = true
		}
	}
	return ordered
}

// TrySynthesis attempts messages against each candidate in order,
// returning the first success. On total exhaustion it returns
// ErrSynthesisExhausted wrapping the last candidate's error.
func (b Base) TrySynthesis(ctx context.Context, cfg debate.Config, candidates []providers.Provider, messages []message.Message) (message.LLMResponse, error) {
	retryCfg := retry.GenerateConfig(cfg.MaxRetries)
	var lastErr error
	for _, p := range candidates {
		var resp message.LLMResponse
		err := retry.Do(ctx, retryCfg, func() error {
			var callErr error
			resp, callErr = p.Generate(ctx, messages, b.CallOptions(cfg))
			return callErr
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		b.Rndr.LogFailure(p.Name(), err)
	}
	if lastErr == nil {
		lastErr = ErrNoProvidersAlive
	}
	return message.LLMResponse{}, fmt.Errorf("%w: %v", ErrSynthesisExhausted, lastErr)
}

// CallJudge sends messages to the judge provider with retry and no
// fallback: a judge failure is always fatal to the run.
func (b Base) CallJudge(ctx context.Context, cfg debate.Config, judgeName string, messages []message.Message) (message.LLMResponse, error) {
	var judgeProvider providers.Provider
	for _, p := range b.Ordered {
		if p.Name() == judgeName {
			judgeProvider = p
			break
		}
	}
	if judgeProvider == nil {
		return message.LLMResponse{}, fmt.Errorf("strategy: judge provider %q not among configured providers", judgeName)
	}

	retryCfg := retry.GenerateConfig(cfg.MaxRetries)
	var resp message.LLMResponse
	err := retry.Do(ctx, retryCfg, func() error {
		var callErr error
		resp, callErr = judgeProvider.Generate(ctx, messages, b.CallOptions(cfg))
		return callErr
	})
	if err != nil {
		b.Rndr.LogFailure(judgeName, err)
		return message.LLMResponse{}, fmt.Errorf("%w: %v", ErrJudgeFailed, err)
	}
	return resp, nil
}
