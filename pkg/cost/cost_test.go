package cost

import (
	"testing"

	"github.com/jpollock/mars/pkg/debate"
	"github.com/jpollock/mars/pkg/message"
)

func TestLookupRateLongestPrefix(t *testing.T) {
	r, ok := LookupRate("gpt-4o-2024-08-06")
	if !ok {
		t.Fatal("expected gpt-4o family to match")
	}
	if r.InputPerMillion != 2.50 {
		t.Fatalf("expected gpt-4o rate, got %+v", r)
	}

	r, ok = LookupRate("gpt-4o-mini-2024-07-18")
	if !ok || r.InputPerMillion != 0.15 {
		t.Fatalf("expected gpt-4o-mini (longer prefix) to win over gpt-4o, got %+v ok=%v", r, ok)
	}
}

func TestLookupRateUnknownModel(t *testing.T) {
	if _, ok := LookupRate("some-unreleased-model"); ok {
		t.Fatal("expected no match for unknown model")
	}
}

func TestAnalyzeSharesSumToOne(t *testing.T) {
	result := &debate.DebateResult{
		Rounds: []debate.DebateRound{
			{
				Index: 1,
				Answers: map[string]message.LLMResponse{
					"openai":    {Provider: "openai", Model: "gpt-4o", Usage: message.TokenUsage{InputTokens: 1000, OutputTokens: 500}},
					"anthropic": {Provider: "anthropic", Model: "claude-3-5-sonnet", Usage: message.TokenUsage{InputTokens: 800, OutputTokens: 400}},
				},
			},
		},
	}

	report := Analyze(result, []string{"openai", "anthropic"})

	var sum float64
	for _, p := range report.Providers {
		sum += p.ShareOfTotal
	}
	if sum < 0.999999 || sum > 1.000001 {
		t.Fatalf("expected shares to sum to 1.0, got %v", sum)
	}
}

func TestAnalyzeUnknownModelZeroCostWithWarning(t *testing.T) {
	result := &debate.DebateResult{
		Rounds: []debate.DebateRound{
			{
				Index: 1,
				Answers: map[string]message.LLMResponse{
					"mystery": {Provider: "mystery", Model: "totally-unreleased-v9", Usage: message.TokenUsage{InputTokens: 100, OutputTokens: 50}},
				},
			},
		},
	}

	report := Analyze(result, []string{"mystery"})

	if report.Providers[0].USD != 0 {
		t.Fatalf("expected zero cost for unknown model, got %v", report.Providers[0].USD)
	}
	if len(report.UnknownModelWarnings) != 1 {
		t.Fatalf("expected one warning, got %v", report.UnknownModelWarnings)
	}
}

func TestAnalyzeMultiRoundDoesNotDoubleCountCritiqueRounds(t *testing.T) {
	// Critique rounds alias Critiques to Answers (the same map backs
	// both fields); Analyze must still only count each response once.
	round2Responses := map[string]message.LLMResponse{
		"openai": {Provider: "openai", Model: "gpt-4o", Usage: message.TokenUsage{InputTokens: 100, OutputTokens: 50}},
	}
	result := &debate.DebateResult{
		Rounds: []debate.DebateRound{
			{
				Index: 1,
				Answers: map[string]message.LLMResponse{
					"openai": {Provider: "openai", Model: "gpt-4o", Usage: message.TokenUsage{InputTokens: 1000, OutputTokens: 500}},
				},
			},
			{
				Index:     2,
				Critiques: round2Responses,
				Answers:   round2Responses,
			},
		},
	}

	report := Analyze(result, []string{"openai"})

	if report.Providers[0].InputTokens != 1100 {
		t.Fatalf("expected 1100 input tokens across both rounds, got %d", report.Providers[0].InputTokens)
	}
	if report.Providers[0].OutputTokens != 550 {
		t.Fatalf("expected 550 output tokens across both rounds, got %d", report.Providers[0].OutputTokens)
	}
}

func TestAnalyzeZeroTotalCostHasZeroShares(t *testing.T) {
	result := &debate.DebateResult{Rounds: []debate.DebateRound{}}
	report := Analyze(result, []string{"openai"})
	if report.Providers[0].ShareOfTotal != 0 {
		t.Fatalf("expected zero share when total cost is zero, got %v", report.Providers[0].ShareOfTotal)
	}
}
