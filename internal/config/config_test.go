package config

import (
	"strings"
	"testing"
)

// TestDefaults verifies default values are applied when no environment
// variables are set.
func TestDefaults(t *testing.T) {
	for _, key := range []string{
		"CHATRELAY_PORT", "CHATRELAY_DATA_DIR", "CHATRELAY_API_TOKEN",
		"CHATRELAY_LOG_LEVEL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"CHATRELAY_DEFAULT_MODEL", "CHATRELAY_EMBED_MODEL",
		"CHATRELAY_SEARCH_MODEL", "CHATRELAY_MCP",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8085 {
		t.Errorf("Port = %d, want 8085", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("OpenAIBaseURL = %q, want the api.openai.com default", cfg.OpenAIBaseURL)
	}
	if cfg.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q, want %q", cfg.DefaultModel, "gpt-4o")
	}
	if cfg.EmbedModel != "text-embedding-3-small" {
		t.Errorf("EmbedModel = %q, want %q", cfg.EmbedModel, "text-embedding-3-small")
	}
	if cfg.SearchModel != "gpt-4-turbo" {
		t.Errorf("SearchModel = %q, want %q", cfg.SearchModel, "gpt-4-turbo")
	}
	if cfg.MCPEnabled {
		t.Error("MCPEnabled = true, want false")
	}
	if !strings.HasSuffix(cfg.DataDir, ".chatrelay") {
		t.Errorf("DataDir = %q, want a path ending in .chatrelay", cfg.DataDir)
	}
}

// TestOverrides verifies environment variables take precedence over defaults.
func TestOverrides(t *testing.T) {
	t.Setenv("CHATRELAY_PORT", "9090")
	t.Setenv("CHATRELAY_DATA_DIR", "/tmp/relay-data")
	t.Setenv("CHATRELAY_API_TOKEN", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHATRELAY_MCP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.DataDir != "/tmp/relay-data" {
		t.Errorf("DataDir = %q, want /tmp/relay-data", cfg.DataDir)
	}
	if cfg.APIToken != "secret" {
		t.Errorf("APIToken = %q, want secret", cfg.APIToken)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q, want sk-test", cfg.OpenAIAPIKey)
	}
	if !cfg.MCPEnabled {
		t.Error("MCPEnabled = false, want true")
	}
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("CHATRELAY_PORT", "70000")
	t.Setenv("CHATRELAY_DATA_DIR", "/tmp/relay-data")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
