// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration. OpenAIAPIKey may be empty: the
// daemon still starts, and every proxy operation that needs the vendor
// answers with a credential error instead.
type Config struct {
	Port     int    `env:"CHATRELAY_PORT" envDefault:"8085"`
	DataDir  string `env:"CHATRELAY_DATA_DIR"`
	APIToken string `env:"CHATRELAY_API_TOKEN"`
	LogLevel string `env:"CHATRELAY_LOG_LEVEL" envDefault:"info"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`

	DefaultModel string `env:"CHATRELAY_DEFAULT_MODEL" envDefault:"gpt-4o"`
	EmbedModel   string `env:"CHATRELAY_EMBED_MODEL" envDefault:"text-embedding-3-small"`
	SearchModel  string `env:"CHATRELAY_SEARCH_MODEL" envDefault:"gpt-4-turbo"`

	// MCPEnabled starts the MCP stdio server alongside the HTTP API.
	MCPEnabled bool `env:"CHATRELAY_MCP" envDefault:"false"`
}

// Load parses configuration from environment variables, filling the data
// directory default when unset.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return Config{}, err
		}
		cfg.DataDir = dir
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}

	return cfg, nil
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".chatrelay"), nil
}
