package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
)

type stubProvider struct {
	name string
	fail bool
}

func (s *stubProvider) Generate(_ context.Context, _ []message.Message, _ providers.CallOptions) (message.LLMResponse, error) {
	if s.fail {
		return message.LLMResponse{}, errors.New("invalid api key")
	}
	return message.LLMResponse{Provider: s.name, Content: "answer from " + s.name}, nil
}

func (s *stubProvider) Stream(_ context.Context, _ []message.Message, _ providers.CallOptions) (providers.Stream, error) {
	return nil, nil
}

func (s *stubProvider) Name() string         { return s.name }
func (s *stubProvider) DefaultModel() string { return "stub-model" }

func TestDispatchConcurrentCollectsAllSuccesses(t *testing.T) {
	provs := []providers.Provider{
		&stubProvider{name: "a"},
		&stubProvider{name: "b"},
	}

	results := Dispatch(context.Background(), provs, func(ctx context.Context, p providers.Provider) (message.LLMResponse, error) {
		return p.Generate(ctx, nil, providers.CallOptions{})
	}, Options{})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["a"].Content != "answer from a" {
		t.Fatalf("unexpected content for a: %q", results["a"].Content)
	}
}

func TestDispatchConcurrentOmitsFailedProviders(t *testing.T) {
	provs := []providers.Provider{
		&stubProvider{name: "a"},
		&stubProvider{name: "b", fail: true},
	}

	var loggedNames []string
	results := Dispatch(context.Background(), provs, func(ctx context.Context, p providers.Provider) (message.LLMResponse, error) {
		return p.Generate(ctx, nil, providers.CallOptions{})
	}, Options{Log: func(name string, err error) { loggedNames = append(loggedNames, name) }})

	if len(results) != 1 {
		t.Fatalf("expected 1 surviving result, got %d", len(results))
	}
	if _, ok := results["b"]; ok {
		t.Fatal("expected failed provider b to be omitted")
	}
	if len(loggedNames) != 1 || loggedNames[0] != "b" {
		t.Fatalf("expected failure for b to be logged, got %v", loggedNames)
	}
}

func TestDispatchSequentialRunsInRegistrationOrder(t *testing.T) {
	var order []string
	provs := []providers.Provider{
		&stubProvider{name: "a"},
		&stubProvider{name: "b"},
	}

	Dispatch(context.Background(), provs, func(ctx context.Context, p providers.Provider) (message.LLMResponse, error) {
		order = append(order, p.Name())
		return p.Generate(ctx, nil, providers.CallOptions{})
	}, Options{Verbose: true})

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected sequential order [a b], got %v", order)
	}
}

func TestDispatchEmptyProviderList(t *testing.T) {
	results := Dispatch(context.Background(), nil, func(ctx context.Context, p providers.Provider) (message.LLMResponse, error) {
		return message.LLMResponse{}, nil
	}, Options{})

	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
}
