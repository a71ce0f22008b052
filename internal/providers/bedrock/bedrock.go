// Package bedrock provides a provider backed by AWS Bedrock's InvokeModel
// API, supporting Claude (Anthropic), Titan (Amazon), and Llama (Meta)
// model families through the one Bedrock Runtime client.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrockruntimetypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
)

func init() {
	providers.Register("bedrock", New)
}

const defaultModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// Config holds typed configuration for the Bedrock provider.
type Config struct {
	ModelID string
	Region  string
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := Config{ModelID: defaultModelID}

	cfg.ModelID = registry.GetString(m, "model", cfg.ModelID)

	region, err := registry.RequireString(m, "region")
	if err != nil {
		return cfg, fmt.Errorf("bedrock provider: %w", err)
	}
	cfg.Region = region

	return cfg, nil
}

// Bedrock wraps the AWS Bedrock Runtime InvokeModel API.
type Bedrock struct {
	client  *bedrockruntime.Client
	modelID string
}

// New creates a Bedrock provider from a registry.Config map.
func New(m registry.Config) (providers.Provider, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}

	return &Bedrock{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		modelID: cfg.ModelID,
	}, nil
}

func (p *Bedrock) Name() string         { return "bedrock" }
func (p *Bedrock) DefaultModel() string { return p.modelID }

func modelFamily(modelID string) string {
	switch {
	case strings.HasPrefix(modelID, "anthropic.claude"):
		return "claude"
	case strings.HasPrefix(modelID, "amazon.titan"):
		return "titan"
	case strings.HasPrefix(modelID, "meta.llama"):
		return "llama"
	default:
		return ""
	}
}

func splitSystem(messages []message.Message) (string, []message.Message) {
	var system strings.Builder
	rest := make([]message.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == message.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return system.String(), rest
}

func buildClaudeRequest(system string, turns []message.Message, opts providers.CallOptions) ([]byte, error) {
	msgs := make([]map[string]string, 0, len(turns))
	for _, m := range turns {
		msgs = append(msgs, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	req := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        opts.MaxTokens,
		"messages":          msgs,
	}
	if system != "" {
		req["system"] = system
	}
	if opts.Temperature != nil {
		req["temperature"] = *opts.Temperature
	}
	return json.Marshal(req)
}

func parseClaudeResponse(body []byte) (string, message.TokenUsage, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", message.TokenUsage{}, err
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return text.String(), message.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func flattenPrompt(system string, turns []message.Message) string {
	var prompt strings.Builder
	if system != "" {
		prompt.WriteString(system)
		prompt.WriteString("\n\n")
	}
	for _, m := range turns {
		label := "User"
		if m.Role == message.RoleAssistant {
			label = "Assistant"
		}
		prompt.WriteString(label)
		prompt.WriteString(": ")
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}
	if !strings.HasSuffix(prompt.String(), "Assistant:") {
		prompt.WriteString("Assistant:")
	}
	return prompt.String()
}

func buildTitanRequest(system string, turns []message.Message, opts providers.CallOptions) ([]byte, error) {
	cfg := map[string]any{
		"maxTokenCount": opts.MaxTokens,
	}
	if opts.Temperature != nil {
		cfg["temperature"] = *opts.Temperature
	}
	req := map[string]any{
		"inputText":            flattenPrompt(system, turns),
		"textGenerationConfig": cfg,
	}
	return json.Marshal(req)
}

func parseTitanResponse(body []byte) (string, message.TokenUsage, error) {
	var resp struct {
		Results []struct {
			OutputText string `json:"outputText"`
			TokenCount int    `json:"tokenCount"`
		} `json:"results"`
		InputTextTokenCount int `json:"inputTextTokenCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", message.TokenUsage{}, err
	}
	if len(resp.Results) == 0 {
		return "", message.TokenUsage{}, fmt.Errorf("no results in Titan response")
	}
	return resp.Results[0].OutputText, message.TokenUsage{
		InputTokens:  resp.InputTextTokenCount,
		OutputTokens: resp.Results[0].TokenCount,
	}, nil
}

func buildLlamaRequest(system string, turns []message.Message, opts providers.CallOptions) ([]byte, error) {
	req := map[string]any{
		"prompt":      flattenPrompt(system, turns),
		"max_gen_len": opts.MaxTokens,
	}
	if opts.Temperature != nil {
		req["temperature"] = *opts.Temperature
	}
	return json.Marshal(req)
}

func parseLlamaResponse(body []byte) (string, message.TokenUsage, error) {
	var resp struct {
		Generation           string `json:"generation"`
		PromptTokenCount     int    `json:"prompt_token_count"`
		GenerationTokenCount int    `json:"generation_token_count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", message.TokenUsage{}, err
	}
	return resp.Generation, message.TokenUsage{
		InputTokens:  resp.PromptTokenCount,
		OutputTokens: resp.GenerationTokenCount,
	}, nil
}

func handleInvokeError(err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "ThrottlingException"), strings.Contains(errStr, "TooManyRequestsException"):
		return fmt.Errorf("bedrock: rate limit exceeded: %w", err)
	case strings.Contains(errStr, "AccessDeniedException"), strings.Contains(errStr, "UnauthorizedException"):
		return fmt.Errorf("bedrock: authentication error: %w", err)
	case strings.Contains(errStr, "ValidationException"):
		return fmt.Errorf("bedrock: invalid request: %w", err)
	case strings.Contains(errStr, "ServiceUnavailableException"), strings.Contains(errStr, "InternalServerException"):
		return fmt.Errorf("bedrock: service error: %w", err)
	default:
		return fmt.Errorf("bedrock: API error: %w", err)
	}
}

// Generate sends messages to Bedrock and waits for the complete response.
// Bedrock has no streaming-agnostic single API: which JSON shape to send
// and parse depends on the invoked model's family.
func (p *Bedrock) Generate(ctx context.Context, messages []message.Message, opts providers.CallOptions) (message.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.modelID
	}
	family := modelFamily(model)
	system, turns := splitSystem(messages)

	var body []byte
	var err error
	switch family {
	case "claude":
		body, err = buildClaudeRequest(system, turns, opts)
	case "titan":
		body, err = buildTitanRequest(system, turns, opts)
	case "llama":
		body, err = buildLlamaRequest(system, turns, opts)
	default:
		return message.LLMResponse{}, fmt.Errorf("bedrock: unsupported model family: %s", model)
	}
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("bedrock: build request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return message.LLMResponse{}, handleInvokeError(err)
	}

	var text string
	var usage message.TokenUsage
	switch family {
	case "claude":
		text, usage, err = parseClaudeResponse(out.Body)
	case "titan":
		text, usage, err = parseTitanResponse(out.Body)
	case "llama":
		text, usage, err = parseLlamaResponse(out.Body)
	}
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("bedrock: parse response: %w", err)
	}

	return message.LLMResponse{
		Provider: p.Name(),
		Model:    model,
		Content:  text,
		Usage:    usage,
	}, nil
}

// bedrockStream adapts Bedrock's InvokeModelWithResponseStream event stream
// to providers.Stream. Only the Claude family's streaming event shape is
// handled: Titan and Llama streaming use distinct chunk shapes MARS does
// not exercise, since debate rounds default to the Claude family on
// Bedrock and Generate already supports all three for non-streaming use.
type bedrockStream struct {
	stream *bedrockruntime.InvokeModelWithResponseStreamEventStream
	usage  message.TokenUsage
	done   bool
}

type claudeStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

func (s *bedrockStream) Next(ctx context.Context) (string, bool, error) {
	if s.done {
		return "", false, nil
	}

	for event := range s.stream.Events() {
		chunkEvent, ok := event.(*bedrockruntimetypes.ResponseStreamMemberChunk)
		if !ok {
			continue
		}
		var evt claudeStreamEvent
		if err := json.Unmarshal(chunkEvent.Value.Bytes, &evt); err != nil {
			continue
		}
		switch evt.Type {
		case "content_block_delta":
			if evt.Delta.Text != "" {
				return evt.Delta.Text, true, nil
			}
		case "message_delta":
			if evt.Usage != nil {
				s.usage.OutputTokens = evt.Usage.OutputTokens
			}
		case "message_stop":
			s.done = true
			return "", false, nil
		}
	}

	if err := s.stream.Err(); err != nil {
		return "", false, fmt.Errorf("bedrock: stream: %w", err)
	}
	s.done = true
	return "", false, nil
}

func (s *bedrockStream) Usage() (message.TokenUsage, bool) {
	return s.usage, s.done
}

// Stream opens a streaming InvokeModel request against a Claude model on
// Bedrock.
func (p *Bedrock) Stream(ctx context.Context, messages []message.Message, opts providers.CallOptions) (providers.Stream, error) {
	model := opts.Model
	if model == "" {
		model = p.modelID
	}
	if modelFamily(model) != "claude" {
		return nil, fmt.Errorf("bedrock: streaming is only supported for the Claude model family, got %s", model)
	}

	system, turns := splitSystem(messages)
	body, err := buildClaudeRequest(system, turns, opts)
	if err != nil {
		return nil, fmt.Errorf("bedrock: build request: %w", err)
	}

	out, err := p.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, handleInvokeError(err)
	}

	return &bedrockStream{stream: out.GetStream()}, nil
}
