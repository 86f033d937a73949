package config

import "testing"

func TestNewDefaults(t *testing.T) {
	for _, key := range []string{
		"OPENROUTER_MODEL", "AGENT_MAX_TOOL_ITERATIONS", "CHAIN_MAX_ATTEMPTS",
		"TURN_LOGGING", "POST_TURN_HOOKS", "AGENT_SYSTEM_PROMPT",
	} {
		t.Setenv(key, "")
	}

	settings, err := New("openrouter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.LLM.Provider != "openrouter" {
		t.Errorf("unexpected provider: %s", settings.LLM.Provider)
	}
	if settings.LLM.Model != "moonshotai/kimi-dev-72b:free" {
		t.Errorf("unexpected default model: %s", settings.LLM.Model)
	}
	if settings.Agent.MaxToolIterations != 3 {
		t.Errorf("unexpected max tool iterations: %d", settings.Agent.MaxToolIterations)
	}
	if settings.Agent.ChainMaxAttempts != 2 {
		t.Errorf("unexpected chain attempts: %d", settings.Agent.ChainMaxAttempts)
	}
	if !settings.Features.TurnLogging || !settings.Features.PostHooks {
		t.Error("expected features enabled by default")
	}
	if settings.Agent.SystemPrompt != "You are Kimmi V2, an autonomous marketing strategist. "+
		"Respond with JSON-friendly structures and cite tool usage." {
		t.Errorf("unexpected default system prompt: %q", settings.Agent.SystemPrompt)
	}
}

func TestNewEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_MODEL", "anthropic/claude-sonnet-4")
	t.Setenv("AGENT_MAX_TOOL_ITERATIONS", "5")
	t.Setenv("CHAIN_MAX_ATTEMPTS", "4")
	t.Setenv("TURN_LOGGING", "false")
	t.Setenv("KIMMI_DATA_DIR", "/tmp/kimmi-test")

	settings, err := New("openrouter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.LLM.Model != "anthropic/claude-sonnet-4" {
		t.Errorf("model override ignored: %s", settings.LLM.Model)
	}
	if settings.Agent.MaxToolIterations != 5 {
		t.Errorf("iteration override ignored: %d", settings.Agent.MaxToolIterations)
	}
	if settings.Agent.ChainMaxAttempts != 4 {
		t.Errorf("attempts override ignored: %d", settings.Agent.ChainMaxAttempts)
	}
	if settings.Features.TurnLogging {
		t.Error("turn logging override ignored")
	}
	if settings.Paths.MemoryFile != "/tmp/kimmi-test/memory.json" {
		t.Errorf("memory file should follow data dir: %s", settings.Paths.MemoryFile)
	}
}

func TestNewInvalidValues(t *testing.T) {
	t.Setenv("AGENT_MAX_TOOL_ITERATIONS", "lots")

	if _, err := New("openrouter"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("mystery"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestProviderAliases(t *testing.T) {
	tests := []struct {
		alias    string
		expected string
	}{
		{"claude", "anthropic"},
		{"google", "gemini"},
		{"gpt", "openai"},
		{"router", "openrouter"},
		{"OpenRouter", "openrouter"},
	}

	for _, tt := range tests {
		settings, err := New(tt.alias)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", tt.alias, err)
		}
		if settings.LLM.Provider != tt.expected {
			t.Errorf("New(%q).Provider = %s, want %s", tt.alias, settings.LLM.Provider, tt.expected)
		}
	}
}

func TestAPIKeyFor(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	key, err := APIKeyFor("openrouter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk-test" {
		t.Errorf("unexpected key: %s", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := APIKeyFor("gemini"); err == nil {
		t.Error("expected error for unset key")
	}
}
