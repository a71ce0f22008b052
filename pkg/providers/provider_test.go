package providers

import (
	"context"
	"testing"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/registry"
)

type fakeProvider struct{ name string }

func (f *fakeProvider) Generate(_ context.Context, _ []message.Message, _ CallOptions) (message.LLMResponse, error) {
	return message.LLMResponse{Provider: f.name}, nil
}

func (f *fakeProvider) Stream(_ context.Context, _ []message.Message, _ CallOptions) (Stream, error) {
	return nil, nil
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func TestRegisterCreateRoundTrip(t *testing.T) {
	Register("test.fake", func(cfg registry.Config) (Provider, error) {
		return &fakeProvider{name: registry.GetString(cfg, "name", "fake")}, nil
	})

	if !Has("test.fake") {
		t.Fatal("expected test.fake to be registered")
	}

	p, err := Create("test.fake", registry.Config{"name": "configured"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "configured" {
		t.Fatalf("expected configured name, got %q", p.Name())
	}

	names := List()
	found := false
	for _, n := range names {
		if n == "test.fake" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected test.fake in List()")
	}
}
