package debate

import "testing"

func validConfig() Config {
	return Config{
		Prompt:    "what is 2+2?",
		Providers: []ProviderSpec{{Name: "openai"}, {Name: "anthropic"}},
		Mode:      ModeRoundRobin,
		Rounds:    2,
		Threshold: 0.85,
		MaxTokens: 1024,
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsDuplicateProviders(t *testing.T) {
	cfg := validConfig()
	cfg.Providers = append(cfg.Providers, ProviderSpec{Name: "openai"})
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate provider")
	}
}

func TestValidateRequiresJudgeProviderInJudgeMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ModeJudge
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when judge_provider is missing in judge mode")
	}

	cfg.JudgeProvider = "not-a-provider"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when judge_provider is not among providers")
	}

	cfg.JudgeProvider = "openai"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsSynthesisProviderNotInList(t *testing.T) {
	cfg := validConfig()
	cfg.SynthesisProvider = "google"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown synthesis_provider")
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Threshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold out of range")
	}
}

func TestValidateRejectsNonPositiveMaxTokens(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTokens = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive max_tokens")
	}
}

func TestValidateRejectsTemperatureOutOfRange(t *testing.T) {
	cfg := validConfig()
	bad := 2.5
	cfg.Temperature = &bad
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for temperature out of range")
	}
}

func TestValidateRejectsZeroRounds(t *testing.T) {
	cfg := validConfig()
	cfg.Rounds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for rounds < 1")
	}
}

func TestValidateRejectsNegativeMaxRetries(t *testing.T) {
	cfg := validConfig()
	cfg.MaxRetries = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative max_retries")
	}
}

func TestRoundSucceededReflectsAnswerPresence(t *testing.T) {
	r := DebateRound{Index: 1}
	if r.Succeeded() {
		t.Fatal("expected empty round to not have succeeded")
	}
}
