package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigureCmd interactively captures provider credentials and writes
// them to ~/.config/mars/config.yaml, the lowest-priority credential
// source pkg/config.LoadCredentials reads.
type ConfigureCmd struct{}

// homeConfigFields mirrors the credentials.* keys config.homeCredentials
// reads back out of ~/.config/mars/config.yaml.
type homeConfigFields struct {
	Credentials struct {
		OpenAIAPIKey     string `yaml:"openai_api_key,omitempty"`
		AnthropicAPIKey  string `yaml:"anthropic_api_key,omitempty"`
		GoogleAPIKey     string `yaml:"google_api_key,omitempty"`
		OllamaBaseURL    string `yaml:"ollama_base_url,omitempty"`
		DefaultProviders string `yaml:"default_providers,omitempty"`
	} `yaml:"credentials"`
}

func (c *ConfigureCmd) Run() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	dir := filepath.Join(homeDir, ".config", "mars")
	path := filepath.Join(dir, "config.yaml")

	var fields homeConfigFields
	if existing, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(existing, &fields)
	}

	reader := bufio.NewScanner(os.Stdin)
	fields.Credentials.OpenAIAPIKey = prompt(reader, "OpenAI API key", fields.Credentials.OpenAIAPIKey)
	fields.Credentials.AnthropicAPIKey = prompt(reader, "Anthropic API key", fields.Credentials.AnthropicAPIKey)
	fields.Credentials.GoogleAPIKey = prompt(reader, "Google API key", fields.Credentials.GoogleAPIKey)
	fields.Credentials.OllamaBaseURL = prompt(reader, "Ollama base URL", fields.Credentials.OllamaBaseURL)
	fields.Credentials.DefaultProviders = prompt(reader, "Default providers (comma-separated)", fields.Credentials.DefaultProviders)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	out, err := yaml.Marshal(&fields)
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	fmt.Printf("Wrote credentials to %s\n", path)
	return nil
}

// prompt shows label with its current value as a default, reads one
// line from reader, and returns the new value (or current if blank).
func prompt(reader *bufio.Scanner, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, redact(current))
	} else {
		fmt.Printf("%s: ", label)
	}
	if !reader.Scan() {
		return current
	}
	line := reader.Text()
	if line == "" {
		return current
	}
	return line
}

// redact shows only the first and last two characters of a secret so
// it can be confirmed without being fully echoed back to the terminal.
func redact(s string) string {
	if len(s) <= 6 {
		return "***"
	}
	return s[:2] + "..." + s[len(s)-2:]
}
