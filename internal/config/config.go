package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ResponderRules = "rules"
	ResponderLLM   = "llm"

	StoreFile  = "file"
	StoreRedis = "redis"
)

type Config struct {
	// Server
	Port        int      `env:"PORT" envDefault:"8080"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Sessions
	DatabaseURL   string        `env:"DATABASE_URL"`
	MessageCap    int           `env:"MESSAGE_CAP" envDefault:"50"`
	Responder     string        `env:"RESPONDER" envDefault:"rules"`
	ResponseDelay time.Duration `env:"RESPONSE_DELAY" envDefault:"0s"`
	LexiconPath   string        `env:"LEXICON_PATH"`
	NotifyChannel string        `env:"NOTIFY_CHANNEL" envDefault:"summary_minted"`

	// External responder
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"llama3-8b-8192"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0.5"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`

	// NFT storage
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StorePath    string `env:"STORE_PATH" envDefault:"data/healthscribe_nfts.json"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisKey     string `env:"REDIS_KEY" envDefault:"healthscribe_nfts"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values Load cannot fix with a default.
func (c *Config) Validate() error {
	switch c.Responder {
	case ResponderRules, ResponderLLM:
	default:
		return fmt.Errorf("RESPONDER must be %q or %q, got %q", ResponderRules, ResponderLLM, c.Responder)
	}
	switch c.StoreBackend {
	case StoreFile, StoreRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreFile, StoreRedis, c.StoreBackend)
	}
	if c.LLMTemperature < 0 {
		return fmt.Errorf("LLM_TEMPERATURE must not be negative, got %v", c.LLMTemperature)
	}
	if c.MessageCap <= 0 {
		return fmt.Errorf("MESSAGE_CAP must be positive, got %d", c.MessageCap)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
