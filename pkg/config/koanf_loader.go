package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadConfig loads a debate configuration with ascending priority: a
// YAML file at configPath (if non-empty), then environment variables
// prefixed MARS_ (double underscore becomes a nested dot, e.g.
// MARS_JUDGE_PROVIDER -> judge_provider). The merged result is checked
// against struct-tag constraints and then Config.Validate, and finally
// has its credentials populated from the environment/.env/home-config
// tiers — never from the debate YAML itself.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", configPath, err)
		}
	}

	err := k.Load(env.Provider("MARS_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "MARS_")
		s = strings.ReplaceAll(s, "__", ".")
		s = strings.ToLower(s)
		return s
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Credentials = LoadCredentials()

	return &cfg, nil
}

// LoadCredentials resolves provider credentials with the precedence,
// highest first: process environment variables, a local .env file,
// then a user-home config file at ~/.config/mars/config.yaml.
func LoadCredentials() Credentials {
	_ = godotenv.Load() // absent .env is not an error; never overrides an already-set env var

	creds := Credentials{
		OpenAIKey:     os.Getenv("MARS_OPENAI_API_KEY"),
		AnthropicKey:  os.Getenv("MARS_ANTHROPIC_API_KEY"),
		GoogleKey:     os.Getenv("MARS_GOOGLE_API_KEY"),
		OllamaBaseURL: os.Getenv("MARS_OLLAMA_BASE_URL"),
	}
	if raw := os.Getenv("MARS_DEFAULT_PROVIDERS"); raw != "" {
		creds.DefaultProviders = strings.Split(raw, ",")
	}

	if home := homeCredentials(); home != nil {
		if creds.OpenAIKey == "" {
			creds.OpenAIKey = home.OpenAIKey
		}
		if creds.AnthropicKey == "" {
			creds.AnthropicKey = home.AnthropicKey
		}
		if creds.GoogleKey == "" {
			creds.GoogleKey = home.GoogleKey
		}
		if creds.OllamaBaseURL == "" {
			creds.OllamaBaseURL = home.OllamaBaseURL
		}
		if len(creds.DefaultProviders) == 0 {
			creds.DefaultProviders = home.DefaultProviders
		}
	}

	return creds
}

// homeCredentials reads ~/.config/mars/config.yaml, the lowest-priority
// credential source. A missing file or home directory is not an error;
// it simply contributes nothing.
func homeCredentials() *Credentials {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	path := filepath.Join(homeDir, ".config", "mars", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil
	}

	creds := &Credentials{
		OpenAIKey:     k.String("credentials.openai_api_key"),
		AnthropicKey:  k.String("credentials.anthropic_api_key"),
		GoogleKey:     k.String("credentials.google_api_key"),
		OllamaBaseURL: k.String("credentials.ollama_base_url"),
	}
	if raw := k.String("credentials.default_providers"); raw != "" {
		creds.DefaultProviders = strings.Split(raw, ",")
	}

	return creds
}
