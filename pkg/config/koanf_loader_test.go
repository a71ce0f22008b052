package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigReadsYAML(t *testing.T) {
	path := writeYAML(t, `
providers:
  - name: anthropic
  - name: openai
    model: gpt-4o
mode: round-robin
rounds: 3
threshold: 0.9
max_tokens: 1024
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "round-robin", cfg.Mode)
	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, 0.9, cfg.Threshold)
	assert.Equal(t, 1024, cfg.MaxTokens)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "gpt-4o", cfg.Providers[1].Model)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	path := writeYAML(t, `
providers:
  - name: anthropic
mode: round-robin
rounds: 1
threshold: 0.9
max_tokens: 1024
`)

	t.Setenv("MARS_ROUNDS", "5")
	t.Setenv("MARS_MODE", "judge")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Rounds)
	assert.Equal(t, "judge", cfg.Mode)
}

func TestLoadConfigRejectsInvalidStructTags(t *testing.T) {
	path := writeYAML(t, `
providers: []
mode: round-robin
rounds: 1
threshold: 0.9
max_tokens: 1024
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRunsCustomValidation(t *testing.T) {
	path := writeYAML(t, `
providers:
  - name: anthropic
mode: judge
rounds: 1
threshold: 0.9
max_tokens: 1024
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge_provider")
}

func TestLoadCredentialsReadsProcessEnvironment(t *testing.T) {
	t.Setenv("MARS_OPENAI_API_KEY", "env-openai-key")
	t.Setenv("MARS_ANTHROPIC_API_KEY", "env-anthropic-key")
	t.Setenv("MARS_DEFAULT_PROVIDERS", "anthropic,openai:gpt-4o")

	creds := LoadCredentials()

	assert.Equal(t, "env-openai-key", creds.OpenAIKey)
	assert.Equal(t, "env-anthropic-key", creds.AnthropicKey)
	assert.Equal(t, []string{"anthropic", "openai:gpt-4o"}, creds.DefaultProviders)
}

func TestLoadCredentialsFallsBackToHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "mars")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
credentials:
  openai_api_key: home-openai-key
  ollama_base_url: http://localhost:11434
`), 0o644))

	creds := LoadCredentials()

	assert.Equal(t, "home-openai-key", creds.OpenAIKey)
	assert.Equal(t, "http://localhost:11434", creds.OllamaBaseURL)
}

func TestLoadCredentialsProcessEnvWinsOverHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "mars")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
credentials:
  openai_api_key: home-openai-key
`), 0o644))

	t.Setenv("MARS_OPENAI_API_KEY", "env-openai-key")

	creds := LoadCredentials()
	assert.Equal(t, "env-openai-key", creds.OpenAIKey)
}
