// Package google provides a provider backed by Google's Gemini models via
// the official google.golang.org/genai SDK.
package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
)

func init() {
	providers.Register("google", New)
}

const defaultModel = "gemini-2.0-flash"

// Config holds typed configuration for the Google provider.
type Config struct {
	APIKey string
	Model  string
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := Config{Model: defaultModel}

	apiKey, err := registry.GetAPIKeyWithEnv(m, "MARS_GOOGLE_API_KEY", "google")
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = apiKey
	cfg.Model = registry.GetString(m, "model", cfg.Model)

	return cfg, nil
}

// Google wraps the Gemini GenerateContent API.
type Google struct {
	client *genai.Client
	model  string
}

// New creates a Google provider from a registry.Config map.
func New(m registry.Config) (providers.Provider, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

// NewFromConfig creates a Google provider from typed configuration.
func NewFromConfig(cfg Config) (*Google, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	return &Google{client: client, model: cfg.Model}, nil
}

func (p *Google) Name() string         { return "google" }
func (p *Google) DefaultModel() string { return p.model }

// splitSystem pulls out system-role messages as a genai system instruction,
// the way Gemini's GenerateContentConfig expects it rather than as a turn.
func splitSystem(messages []message.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		if m.Role == message.RoleSystem {
			if system == nil {
				system = &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}}
			} else {
				system.Parts = append(system.Parts, &genai.Part{Text: m.Content})
			}
			continue
		}

		role := "user"
		if m.Role == message.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	return system, contents
}

func (p *Google) buildConfig(system *genai.Content, opts providers.CallOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if opts.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	return cfg
}

// Generate sends messages to Gemini and waits for the complete response.
func (p *Google) Generate(ctx context.Context, messages []message.Message, opts providers.CallOptions) (message.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	system, contents := splitSystem(messages)
	cfg := p.buildConfig(system, opts)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("google: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return message.LLMResponse{}, fmt.Errorf("google: empty response")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	usage := message.TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return message.LLMResponse{
		Provider: p.Name(),
		Model:    model,
		Content:  text,
		Usage:    usage,
	}, nil
}

// googleStream adapts genai's iter.Seq2 streaming result to providers.Stream.
type googleStream struct {
	next  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	usage message.TokenUsage
	done  bool
}

func (s *googleStream) Next(_ context.Context) (string, bool, error) {
	if s.done {
		return "", false, nil
	}

	resp, err, ok := s.next()
	if !ok {
		s.done = true
		if s.stop != nil {
			s.stop()
		}
		return "", false, nil
	}
	if err != nil {
		s.done = true
		if s.stop != nil {
			s.stop()
		}
		return "", false, fmt.Errorf("google: stream: %w", err)
	}

	if resp.UsageMetadata != nil {
		s.usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		s.usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", true, nil
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, true, nil
}

func (s *googleStream) Usage() (message.TokenUsage, bool) {
	return s.usage, s.done
}

// Stream opens a streaming GenerateContent call against Gemini.
func (p *Google) Stream(ctx context.Context, messages []message.Message, opts providers.CallOptions) (providers.Stream, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	system, contents := splitSystem(messages)
	cfg := p.buildConfig(system, opts)

	seq := p.client.Models.GenerateContentStream(ctx, model, contents, cfg)

	pull, stop := iterPull(seq)
	return &googleStream{next: pull, stop: stop}, nil
}
