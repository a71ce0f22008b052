// Package openai provides the OpenAI chat completions provider.
package openai

import (
	"context"
	"fmt"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	providers.Register("openai", New)
}

const defaultModel = "gpt-4o"

// Config holds typed configuration for the OpenAI provider.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := Config{Model: defaultModel}

	apiKey, err := registry.GetAPIKeyWithEnv(m, "MARS_OPENAI_API_KEY", "openai")
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = apiKey
	cfg.Model = registry.GetString(m, "model", cfg.Model)
	cfg.BaseURL = registry.GetString(m, "base_url", "")

	return cfg, nil
}

// OpenAI wraps the OpenAI chat completions API.
type OpenAI struct {
	client *goopenai.Client
	model  string
}

// New creates an OpenAI provider from a registry.Config map.
func New(m registry.Config) (providers.Provider, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg), nil
}

// NewFromConfig creates an OpenAI provider from typed configuration.
func NewFromConfig(cfg Config) *OpenAI {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{client: goopenai.NewClientWithConfig(clientCfg), model: cfg.Model}
}

func (p *OpenAI) Name() string         { return "openai" }
func (p *OpenAI) DefaultModel() string { return p.model }

func toOpenAIMessages(msgs []message.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (p *OpenAI) request(messages []message.Message, opts providers.CallOptions) goopenai.ChatCompletionRequest {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	req := goopenai.ChatCompletionRequest{
		Model:     model,
		Messages:  toOpenAIMessages(messages),
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	return req
}

// Generate sends messages to OpenAI and waits for the complete response.
func (p *OpenAI) Generate(ctx context.Context, messages []message.Message, opts providers.CallOptions) (message.LLMResponse, error) {
	req := p.request(messages, opts)

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return message.LLMResponse{}, fmt.Errorf("openai: empty response")
	}

	return message.LLMResponse{
		Provider: p.Name(),
		Model:    resp.Model,
		Content:  resp.Choices[0].Message.Content,
		Usage: message.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// openaiStream adapts go-openai's streaming client to providers.Stream.
type openaiStream struct {
	inner *goopenai.ChatCompletionStream
	model string
	usage message.TokenUsage
	done  bool
}

func (s *openaiStream) Next(_ context.Context) (string, bool, error) {
	if s.done {
		return "", false, nil
	}

	resp, err := s.inner.Recv()
	if err != nil {
		if err.Error() == "EOF" {
			s.done = true
			s.inner.Close()
			return "", false, nil
		}
		return "", false, fmt.Errorf("openai: stream: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", true, nil
	}
	return resp.Choices[0].Delta.Content, true, nil
}

func (s *openaiStream) Usage() (message.TokenUsage, bool) {
	return s.usage, s.done
}

// Stream opens a streaming chat completion against OpenAI.
func (p *OpenAI) Stream(ctx context.Context, messages []message.Message, opts providers.CallOptions) (providers.Stream, error) {
	req := p.request(messages, opts)
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: stream: %w", err)
	}

	return &openaiStream{inner: stream, model: req.Model}, nil
}
