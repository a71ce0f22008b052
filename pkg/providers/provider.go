// Package providers defines the common contract every LLM back end
// implements, and the registry debate strategies use to look providers
// up by name. Concrete back ends live under internal/providers/* and
// self-register at init() time, the same shape the teacher uses for
// its generator implementations.
package providers

import (
	"context"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/registry"
)

// CallOptions carries the per-call parameters a Provider needs. A nil
// Temperature must never be transmitted to the underlying API: some
// back ends treat an explicit zero temperature differently from "not
// set", so the distinction has to survive this far.
type CallOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Stream is a pull-based iterator over a provider's incremental output.
// Callers drain it by repeatedly calling Next until ok is false; Usage
// only returns a meaningful value once the stream has been fully
// drained (err == nil, ok == false).
type Stream interface {
	// Next returns the next chunk of text. ok is false once the stream
	// is exhausted; err is non-nil if the stream failed before
	// finishing.
	Next(ctx context.Context) (chunk string, ok bool, err error)
	// Usage returns the token usage for the completed stream. Its
	// second return value is false until the stream has been fully
	// drained.
	Usage() (message.TokenUsage, bool)
}

// Provider is the interface every LLM back end implements. A Provider
// is stateless between calls: it holds only its client and static
// configuration, never conversation history, since MARS replays the
// full message list on every round.
type Provider interface {
	// Generate sends messages to the model and waits for the complete
	// response.
	Generate(ctx context.Context, messages []message.Message, opts CallOptions) (message.LLMResponse, error)
	// Stream sends messages to the model and returns an iterator over
	// the incremental output. Used only in verbose/sequential mode.
	Stream(ctx context.Context, messages []message.Message, opts CallOptions) (Stream, error)
	// Name returns the provider's registration name (e.g. "openai").
	Name() string
	// DefaultModel returns the model used when CallOptions.Model is
	// empty.
	DefaultModel() string
}

// Registry is the global provider registry. Each internal/providers/*
// package registers its factory from an init() function.
var Registry = registry.New[Provider]("providers")

// Register adds a provider factory to the global registry.
func Register(name string, factory func(registry.Config) (Provider, error)) {
	Registry.Register(name, factory)
}

// List returns all registered provider names, sorted alphabetically.
func List() []string {
	return Registry.List()
}

// Create instantiates a provider by name from a configuration map.
func Create(name string, cfg registry.Config) (Provider, error) {
	return Registry.Create(name, cfg)
}

// Has reports whether a provider name is registered.
func Has(name string) bool {
	return Registry.Has(name)
}
