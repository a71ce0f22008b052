// Package ollama provides a provider backed by a local Ollama instance's
// /api/chat endpoint.
//
// Ollama has no API key: the only configuration that matters is which
// host to talk to, so this provider reads MARS_OLLAMA_BASE_URL instead
// of the API-key environment variables the hosted providers use.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
)

func init() {
	providers.Register("ollama", New)
}

const (
	defaultModel   = "llama3"
	defaultBaseURL = "http://127.0.0.1:11434"
	defaultTimeout = 120 * time.Second
)

// Config holds typed configuration for the Ollama provider.
type Config struct {
	Model   string
	BaseURL string
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := Config{Model: defaultModel, BaseURL: defaultBaseURL}

	cfg.Model = registry.GetString(m, "model", cfg.Model)

	cfg.BaseURL = registry.GetString(m, "base_url", "")
	if cfg.BaseURL == "" {
		if envURL := os.Getenv("MARS_OLLAMA_BASE_URL"); envURL != "" {
			cfg.BaseURL = envURL
		} else {
			cfg.BaseURL = defaultBaseURL
		}
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return cfg, nil
}

// Ollama wraps a local Ollama server's chat endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// New creates an Ollama provider from a registry.Config map.
func New(m registry.Config) (providers.Provider, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg), nil
}

// NewFromConfig creates an Ollama provider from typed configuration.
func NewFromConfig(cfg Config) *Ollama {
	return &Ollama{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (p *Ollama) Name() string         { return "ollama" }
func (p *Ollama) DefaultModel() string { return p.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model      string      `json:"model"`
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	Error      string      `json:"error,omitempty"`
	PromptEval int         `json:"prompt_eval_count,omitempty"`
	EvalCount  int         `json:"eval_count,omitempty"`
}

func toChatMessages(msgs []message.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (p *Ollama) buildOptions(opts providers.CallOptions) *chatOptions {
	if opts.Temperature == nil && opts.MaxTokens == 0 {
		return nil
	}
	o := &chatOptions{Temperature: opts.Temperature}
	if opts.MaxTokens > 0 {
		n := opts.MaxTokens
		o.NumPredict = &n
	}
	return o
}

func (p *Ollama) buildRequest(messages []message.Message, opts providers.CallOptions, stream bool) chatRequest {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	return chatRequest{
		Model:    model,
		Messages: toChatMessages(messages),
		Stream:   stream,
		Options:  p.buildOptions(opts),
	}
}

// Generate sends messages to Ollama's chat endpoint and waits for the
// complete response.
func (p *Ollama) Generate(ctx context.Context, messages []message.Message, opts providers.CallOptions) (message.LLMResponse, error) {
	req := p.buildRequest(messages, opts, false)

	body, err := json.Marshal(req)
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("ollama: failed to connect to server: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return message.LLMResponse{}, fmt.Errorf("ollama: read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return message.LLMResponse{}, fmt.Errorf("ollama: server returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return message.LLMResponse{}, fmt.Errorf("ollama: parse response: %w", err)
	}
	if resp.Error != "" {
		return message.LLMResponse{}, fmt.Errorf("ollama: %s", resp.Error)
	}

	return message.LLMResponse{
		Provider: p.Name(),
		Model:    req.Model,
		Content:  resp.Message.Content,
		Usage: message.TokenUsage{
			InputTokens:  resp.PromptEval,
			OutputTokens: resp.EvalCount,
		},
	}, nil
}

// ollamaStream reads newline-delimited JSON chat responses, one object
// per streamed token as Ollama's /api/chat emits them.
type ollamaStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	usage   message.TokenUsage
	done    bool
}

func (s *ollamaStream) Next(_ context.Context) (string, bool, error) {
	if s.done {
		return "", false, nil
	}

	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			s.done = true
			s.body.Close()
			return "", false, fmt.Errorf("ollama: %s", chunk.Error)
		}
		if chunk.Done {
			s.usage.InputTokens = chunk.PromptEval
			s.usage.OutputTokens = chunk.EvalCount
			s.done = true
			s.body.Close()
			if chunk.Message.Content == "" {
				return "", false, nil
			}
			return chunk.Message.Content, true, nil
		}
		if chunk.Message.Content != "" {
			return chunk.Message.Content, true, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", false, fmt.Errorf("ollama: stream: %w", err)
	}
	s.done = true
	s.body.Close()
	return "", false, nil
}

func (s *ollamaStream) Usage() (message.TokenUsage, bool) {
	return s.usage, s.done
}

// Stream opens a streaming chat request against Ollama's /api/chat
// endpoint, which replies with one JSON object per line rather than
// server-sent events.
func (p *Ollama) Stream(ctx context.Context, messages []message.Message, opts providers.CallOptions) (providers.Stream, error) {
	req := p.buildRequest(messages, opts, true)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to connect to server: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("ollama: server returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	return &ollamaStream{body: httpResp.Body, scanner: bufio.NewScanner(httpResp.Body)}, nil
}
