// Package replicate provides a provider backed by Replicate's hosted
// open-source model API. Replicate predictions take a single prompt
// string, not a structured message list, so messages are flattened
// before the call.
package replicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
	replicatego "github.com/replicate/replicate-go"
)

func init() {
	providers.Register("replicate", New)
}

const defaultModel = "meta/meta-llama-3-70b-instruct"

// Config holds typed configuration for the Replicate provider.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := Config{Model: defaultModel}

	cfg.Model = registry.GetString(m, "model", cfg.Model)

	apiKey, err := registry.GetAPIKeyWithEnv(m, "MARS_REPLICATE_API_KEY", "replicate")
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = apiKey
	cfg.BaseURL = registry.GetString(m, "base_url", "")

	return cfg, nil
}

// Replicate wraps the Replicate prediction API.
type Replicate struct {
	client *replicatego.Client
	model  string
}

// New creates a Replicate provider from a registry.Config map.
func New(m registry.Config) (providers.Provider, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

// NewFromConfig creates a Replicate provider from typed configuration.
func NewFromConfig(cfg Config) (*Replicate, error) {
	opts := []replicatego.ClientOption{replicatego.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(cfg.BaseURL))
	}

	client, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate: create client: %w", err)
	}
	return &Replicate{client: client, model: cfg.Model}, nil
}

func (p *Replicate) Name() string         { return "replicate" }
func (p *Replicate) DefaultModel() string { return p.model }

// flattenPrompt turns a message list into the single prompt string
// Replicate's chat-style models expect, carrying role labels the way a
// plain-text completion model needs them spelled out.
func flattenPrompt(messages []message.Message) string {
	var prompt strings.Builder
	for _, m := range messages {
		switch m.Role {
		case message.RoleSystem:
			prompt.WriteString(m.Content)
			prompt.WriteString("\n\n")
		case message.RoleUser:
			prompt.WriteString("User: ")
			prompt.WriteString(m.Content)
			prompt.WriteString("\n")
		case message.RoleAssistant:
			prompt.WriteString("Assistant: ")
			prompt.WriteString(m.Content)
			prompt.WriteString("\n")
		}
	}
	prompt.WriteString("Assistant:")
	return prompt.String()
}

func extractText(output replicatego.PredictionOutput) string {
	switch v := output.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "")
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	default:
		return fmt.Sprintf("%v", output)
	}
}

func wrapError(err error) error {
	if apiErr, ok := err.(*replicatego.APIError); ok {
		return fmt.Errorf("replicate: API error (status %d): %w", apiErr.Status, err)
	}
	return fmt.Errorf("replicate: %w", err)
}

// Generate sends the flattened prompt to Replicate and waits for the
// complete prediction output.
func (p *Replicate) Generate(ctx context.Context, messages []message.Message, opts providers.CallOptions) (message.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	input := replicatego.PredictionInput{
		"prompt": flattenPrompt(messages),
	}
	if opts.Temperature != nil {
		input["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		input["max_new_tokens"] = opts.MaxTokens
	}

	output, err := p.client.Run(ctx, model, input, nil)
	if err != nil {
		return message.LLMResponse{}, wrapError(err)
	}

	return message.LLMResponse{
		Provider: p.Name(),
		Model:    model,
		Content:  extractText(output),
	}, nil
}

// replicateStream delivers Replicate's prediction output as a single
// chunk: Run is a synchronous call that only resolves once the whole
// prediction has completed, so there is no incremental text to relay
// before then.
type replicateStream struct {
	content string
	sent    bool
}

func (s *replicateStream) Next(_ context.Context) (string, bool, error) {
	if s.sent {
		return "", false, nil
	}
	s.sent = true
	if s.content == "" {
		return "", false, nil
	}
	return s.content, true, nil
}

func (s *replicateStream) Usage() (message.TokenUsage, bool) {
	return message.TokenUsage{}, s.sent
}

// Stream runs the prediction to completion and relays its entire output
// as one chunk, since Replicate's Run API has no token-by-token mode.
func (p *Replicate) Stream(ctx context.Context, messages []message.Message, opts providers.CallOptions) (providers.Stream, error) {
	resp, err := p.Generate(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	return &replicateStream{content: resp.Content}, nil
}
