package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
)

func TestGenerateExtractsTextAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("x-api-key"))
		}
		resp := messageResponse{
			Content: []contentBlock{{Type: "text", Text: "hello from claude"}},
			Usage:   usageStats{InputTokens: 20, OutputTokens: 5},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewFromConfig(Config{APIKey: "test-key", Model: "claude-3-5-sonnet-20241022", BaseURL: server.URL, APIVersion: "2023-06-01"})

	resp, err := p.Generate(context.Background(), []message.Message{message.NewUser("hi")}, providers.CallOptions{MaxTokens: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from claude" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Usage.InputTokens != 20 || resp.Usage.OutputTokens != 5 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestGenerateSplitsSystemMessage(t *testing.T) {
	var captured messageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(messageResponse{Content: []contentBlock{{Type: "text", Text: "ok"}}})
	}))
	defer server.Close()

	p := NewFromConfig(Config{APIKey: "k", Model: "claude-3-5-sonnet-20241022", BaseURL: server.URL, APIVersion: "2023-06-01"})
	_, err := p.Generate(context.Background(), []message.Message{
		message.NewSystem("be concise"),
		message.NewUser("hi"),
	}, providers.CallOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.System != "be concise" {
		t.Fatalf("expected system field to carry system message, got %q", captured.System)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected system message excluded from messages list, got %+v", captured.Messages)
	}
}

func TestGenerateSurfacesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(errorResponse{})
	}))
	defer server.Close()

	p := NewFromConfig(Config{APIKey: "k", Model: "claude-3-5-sonnet-20241022", BaseURL: server.URL, APIVersion: "2023-06-01"})
	_, err := p.Generate(context.Background(), []message.Message{message.NewUser("hi")}, providers.CallOptions{})
	if err == nil {
		t.Fatal("expected error for rate-limited response")
	}
}
