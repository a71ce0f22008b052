package roundrobin

import (
	"context"
	"errors"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
)

// fakeProvider answers with a scripted response per call index, reusing
// the last scripted response once exhausted. failAfter, when >= 0,
// makes every call at that index or later return a fatal (non-transient)
// error so retry.Do never masks the test's call-count accounting.
type fakeProvider struct {
	name      string
	responses []string
	failAfter int
	calls     int
}

func newFakeProvider(name string, responses ...string) *fakeProvider {
	return &fakeProvider{name: name, responses: responses, failAfter: -1}
}

func (p *fakeProvider) Generate(_ context.Context, _ []message.Message, _ providers.CallOptions) (message.LLMResponse, error) {
	idx := p.calls
	p.calls++

	if p.failAfter >= 0 && idx >= p.failAfter {
		return message.LLMResponse{}, errors.New("invalid request: fake failure")
	}

	content := p.name
	switch {
	case idx < len(p.responses):
		content = p.responses[idx]
	case len(p.responses) > 0:
		content = p.responses[len(p.responses)-1]
	}

	return message.LLMResponse{Provider: p.name, Model: "fake-model", Content: content}, nil
}

func (p *fakeProvider) Stream(context.Context, []message.Message, providers.CallOptions) (providers.Stream, error) {
	return nil, errors.New("fakeProvider: streaming not supported")
}

func (p *fakeProvider) Name() string         { return p.name }
func (p *fakeProvider) DefaultModel() string { return "fake-model" }

// cancelingStream yields a single chunk and cancels its provider's
// context as a side effect, simulating a caller-cancellation that
// lands after a provider has already streamed its answer.
type cancelingStream struct {
	cancel context.CancelFunc
	done   bool
}

func (s *cancelingStream) Next(context.Context) (string, bool, error) {
	if s.done {
		return "", false, nil
	}
	s.done = true
	s.cancel()
	return "final chunk", true, nil
}

func (s *cancelingStream) Usage() (message.TokenUsage, bool) { return message.TokenUsage{}, false }

// cancelingProvider streams one chunk then calls the cancel func it was
// constructed with (the test's own ctx cancel), so Run() observes the
// cancellation only after the round completes.
type cancelingProvider struct {
	name   string
	cancel context.CancelFunc
}

func (p *cancelingProvider) Generate(context.Context, []message.Message, providers.CallOptions) (message.LLMResponse, error) {
	return message.LLMResponse{}, errors.New("cancelingProvider: Generate not used in verbose mode")
}

func (p *cancelingProvider) Stream(context.Context, []message.Message, providers.CallOptions) (providers.Stream, error) {
	return &cancelingStream{cancel: p.cancel}, nil
}

func (p *cancelingProvider) Name() string         { return p.name }
func (p *cancelingProvider) DefaultModel() string { return "fake-model" }
