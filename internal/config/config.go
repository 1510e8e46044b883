package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment-backed configuration for the intake service.
type Config struct {
	// HTTP server
	Port string `env:"PORT" envDefault:"8080"`

	// Persistence. STORE_BACKEND selects the checkpoint/case store:
	// "postgres" (requires DATABASE_URL) or "memory".
	DatabaseURL   string        `env:"DATABASE_URL"`
	StoreBackend  string        `env:"STORE_BACKEND" envDefault:"postgres"`
	CheckpointTTL time.Duration `env:"CHECKPOINT_TTL" envDefault:"24h"`
	MigrationsDir string        `env:"MIGRATIONS_DIR" envDefault:"file://migrations"`

	// Completion collaborator
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMMaxRetries uint64        `env:"LLM_MAX_RETRIES" envDefault:"2"`

	// Emergency handoff
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	StaffChatID      int64  `env:"STAFF_CHAT_ID"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses the environment and validates cross-field requirements.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND: %q", cfg.StoreBackend)
	}
	return cfg, nil
}
