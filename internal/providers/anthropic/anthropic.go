// Package anthropic provides the Anthropic Messages API provider.
//
// Anthropic requires max_tokens on every request and carries the
// system prompt as a top-level field rather than a message in the
// list, so this implementation talks to the API directly over HTTP
// the same way the teacher's own Anthropic generator does, rather
// than through an unofficial SDK.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
)

func init() {
	providers.Register("anthropic", New)
}

const (
	defaultModel      = "claude-3-5-sonnet-20241022"
	defaultAPIVersion = "2023-06-01"
	defaultBaseURL    = "https://api.anthropic.com/v1"
	defaultTimeout    = 90 * time.Second
)

// Config holds typed configuration for the Anthropic provider.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := Config{Model: defaultModel, BaseURL: defaultBaseURL, APIVersion: defaultAPIVersion}

	apiKey, err := registry.GetAPIKeyWithEnv(m, "MARS_ANTHROPIC_API_KEY", "anthropic")
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = apiKey
	cfg.Model = registry.GetString(m, "model", cfg.Model)
	cfg.BaseURL = registry.GetString(m, "base_url", cfg.BaseURL)
	cfg.APIVersion = registry.GetString(m, "api_version", cfg.APIVersion)

	return cfg, nil
}

// Anthropic wraps the Anthropic Messages API.
type Anthropic struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	client     *http.Client
}

// New creates an Anthropic provider from a registry.Config map.
func New(m registry.Config) (providers.Provider, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg), nil
}

// NewFromConfig creates an Anthropic provider from typed configuration.
func NewFromConfig(cfg Config) *Anthropic {
	return &Anthropic{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		apiVersion: cfg.APIVersion,
		model:      cfg.Model,
		client:     &http.Client{Timeout: defaultTimeout},
	}
}

func (p *Anthropic) Name() string         { return "anthropic" }
func (p *Anthropic) DefaultModel() string { return p.model }

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	Messages    []anthropicMsg `json:"messages"`
	System      string         `json:"system,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usageStats struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
	Usage   usageStats     `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func splitSystem(messages []message.Message) (string, []anthropicMsg) {
	var system string
	out := make([]anthropicMsg, 0, len(messages))
	for _, m := range messages {
		if m.Role == message.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		out = append(out, anthropicMsg{Role: string(m.Role), Content: m.Content})
	}
	return system, out
}

func (p *Anthropic) buildRequest(messages []message.Message, opts providers.CallOptions, stream bool) messageRequest {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	system, msgs := splitSystem(messages)

	return messageRequest{
		Model:       model,
		MaxTokens:   opts.MaxTokens,
		Messages:    msgs,
		System:      system,
		Temperature: opts.Temperature,
		Stream:      stream,
	}
}

func (p *Anthropic) newHTTPRequest(ctx context.Context, req messageRequest) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.apiVersion)
	return httpReq, nil
}

func (p *Anthropic) handleError(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("anthropic: HTTP %d: %s", statusCode, string(body))
	}
	return fmt.Errorf("anthropic: HTTP %d (%s): %s", statusCode, errResp.Error.Type, errResp.Error.Message)
}

// Generate sends messages to Claude and waits for the complete response.
func (p *Anthropic) Generate(ctx context.Context, messages []message.Message, opts providers.CallOptions) (message.LLMResponse, error) {
	req := p.buildRequest(messages, opts, false)

	httpReq, err := p.newHTTPRequest(ctx, req)
	if err != nil {
		return message.LLMResponse{}, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("anthropic: read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return message.LLMResponse{}, p.handleError(httpResp.StatusCode, respBody)
	}

	var resp messageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return message.LLMResponse{}, fmt.Errorf("anthropic: parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return message.LLMResponse{
		Provider: p.Name(),
		Model:    req.Model,
		Content:  text.String(),
		Usage: message.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// sseEvent mirrors the subset of Anthropic's streaming event payloads
// this provider needs: text deltas and the final usage report.
type sseEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	Usage *usageStats `json:"usage,omitempty"`
}

type anthropicStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	usage   message.TokenUsage
	done    bool
}

func (s *anthropicStream) Next(_ context.Context) (string, bool, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var evt sseEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
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
			s.body.Close()
			return "", false, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", false, fmt.Errorf("anthropic: stream: %w", err)
	}
	s.done = true
	s.body.Close()
	return "", false, nil
}

func (s *anthropicStream) Usage() (message.TokenUsage, bool) {
	return s.usage, s.done
}

// Stream opens a streaming Messages API request against Claude.
func (p *Anthropic) Stream(ctx context.Context, messages []message.Message, opts providers.CallOptions) (providers.Stream, error) {
	req := p.buildRequest(messages, opts, true)

	httpReq, err := p.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: stream request failed: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		body, _ := io.ReadAll(httpResp.Body)
		return nil, p.handleError(httpResp.StatusCode, body)
	}

	return &anthropicStream{body: httpResp.Body, scanner: bufio.NewScanner(httpResp.Body)}, nil
}
