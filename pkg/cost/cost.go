// Package cost sums token usage across a debate and prices it against
// a static per-model rate table, falling back to a local tiktoken
// estimate when a provider reported no usage at all.
package cost

import (
	"fmt"

	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/message"
	"github.com/pkoukk/tiktoken-go"
)

// ProviderCost is one provider's token and dollar totals for a run.
type ProviderCost struct {
	Provider     string
	InputTokens  int
	OutputTokens int
	USD          float64
	ShareOfTotal float64
	Estimated    bool
}

// Report is the complete cost analysis for one debate.
type Report struct {
	Providers            []ProviderCost
	UnknownModelWarnings []string
}

type accumulator struct {
	inputTokens  int
	outputTokens int
	model        string
	estimated    bool
	sawUsage     bool
}

// Analyze sums usage across every response in result (including
// synthesis), prices it per provider, and computes each provider's
// share of the total cost. providerOrder fixes the order Providers
// appears in and which providers are reported even if they never
// produced a response (e.g. a provider that failed every round gets a
// zeroed entry).
func Analyze(result *debate.DebateResult, providerOrder []string) Report {
	acc := make(map[string]*accumulator, len(providerOrder))
	for _, p := range providerOrder {
		acc[p] = &accumulator{}
	}

	add := func(resp message.LLMResponse) {
		a, ok := acc[resp.Provider]
		if !ok {
			a = &accumulator{}
			acc[resp.Provider] = a
		}
		a.model = resp.Model
		if resp.Usage.InputTokens > 0 || resp.Usage.OutputTokens > 0 {
			a.sawUsage = true
			a.inputTokens += resp.Usage.InputTokens
			a.outputTokens += resp.Usage.OutputTokens
		} else {
			// Fall back to a local estimate for this response only
			// when the provider reported nothing at all; a real
			// zero-usage response never overrides prior real usage.
			estIn, estOut := estimateUsage(resp)
			a.inputTokens += estIn
			a.outputTokens += estOut
			a.estimated = true
		}
	}

	for _, round := range result.Rounds {
		// Critique rounds alias Critiques to Answers (see
		// Base.RunCritiqueRound's DebateRound construction); iterating
		// only Answers avoids summing each response twice.
		for _, resp := range round.Answers {
			add(resp)
		}
	}
	if result.Synthesis != nil {
		add(*result.Synthesis)
	}

	var warnings []string
	totalCost := 0.0
	costs := make(map[string]float64, len(acc))

	for provider, a := range acc {
		rates, ok := LookupRate(a.model)
		if !ok && a.model != "" {
			warnings = append(warnings, fmt.Sprintf("unknown model %q for provider %q: cost recorded as 0", a.model, provider))
		}
		c := float64(a.inputTokens)/1_000_000*rates.InputPerMillion + float64(a.outputTokens)/1_000_000*rates.OutputPerMillion
		costs[provider] = c
		totalCost += c
	}

	providers := make([]ProviderCost, 0, len(providerOrder))
	for _, p := range providerOrder {
		a := acc[p]
		pc := ProviderCost{
			Provider:     p,
			InputTokens:  a.inputTokens,
			OutputTokens: a.outputTokens,
			USD:          costs[p],
			Estimated:    a.estimated && !a.sawUsage,
		}
		if totalCost > 0 {
			pc.ShareOfTotal = costs[p] / totalCost
		}
		providers = append(providers, pc)
	}

	return Report{Providers: providers, UnknownModelWarnings: warnings}
}

// estimateUsage uses a local tiktoken encoding to approximate token
// counts for a response whose provider reported none. Only output tokens
// are estimated, from resp.Content; the input token count is always 0.
// This is only a fallback: it never overrides usage a provider actually
// reported.
func estimateUsage(resp message.LLMResponse) (inputTokens, outputTokens int) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// No local encoding available; report zero rather than guess
		// with a character-count heuristic that would silently masquerade
		// as a real token count.
		return 0, 0
	}
	outputTokens = len(enc.Encode(resp.Content, nil, nil))
	return 0, outputTokens
}
