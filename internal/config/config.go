package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the assistant service.
// Environment variables are automatically parsed from the TASKIVO_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage. DBDriver "auto" picks postgres when a DSN is set, sqlite
	// otherwise.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"taskivo.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Twilio Configuration
	TwilioAccountSID   string `envconfig:"TWILIO_ACCOUNT_SID" default:""`
	TwilioAuthToken    string `envconfig:"TWILIO_AUTH_TOKEN" default:""`
	TwilioWhatsAppFrom string `envconfig:"TWILIO_WHATSAPP_FROM" default:"whatsapp:+14155238886"`

	// OpenAI Configuration. An empty key switches extraction and
	// transcription to their deterministic/mock fallbacks.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	ChatModel    string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	WhisperModel string `envconfig:"WHISPER_MODEL" default:"whisper-1"`

	// Locale defaults for new users
	DefaultLanguage    string `envconfig:"DEFAULT_LANGUAGE" default:"he"`
	DefaultTimeZone    string `envconfig:"DEFAULT_TIMEZONE" default:"Asia/Jerusalem"`
	DefaultCountryCode string `envconfig:"DEFAULT_COUNTRY_CODE" default:"972"`

	// Reminder sweep and weekly summary
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	WeeklySummaryDay int           `envconfig:"WEEKLY_SUMMARY_DAY" default:"0"`
	WeeklySummaryHr  int           `envconfig:"WEEKLY_SUMMARY_HOUR" default:"8"`
}

// ResolveDefaults validates the config and derives DBDriver when set to
// "auto" or empty.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER is postgres but POSTGRES_DSN is empty")
	}
	if c.WeeklySummaryDay < 0 || c.WeeklySummaryDay > 6 {
		return fmt.Errorf("WEEKLY_SUMMARY_DAY must be 0..6, got %d", c.WeeklySummaryDay)
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("SWEEP_INTERVAL too small: %s", c.SweepInterval)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with TASKIVO_
// Example: TASKIVO_HTTP_PORT, TASKIVO_TWILIO_ACCOUNT_SID
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("TASKIVO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("db_driver", cfg.DBDriver).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Bool("twilio_configured", cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "").
		Bool("openai_configured", cfg.OpenAIAPIKey != "").
		Str("chat_model", cfg.ChatModel).
		Str("default_language", cfg.DefaultLanguage).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment:        EnvTesting,
		HTTPPort:           8080,
		DBDriver:           "sqlite",
		SQLitePath:         ":memory:",
		TwilioWhatsAppFrom: "whatsapp:+14155238886",
		ChatModel:          "gpt-4o-mini",
		WhisperModel:       "whisper-1",
		DefaultLanguage:    "he",
		DefaultTimeZone:    "Asia/Jerusalem",
		DefaultCountryCode: "972",
		SweepInterval:      time.Minute,
		WeeklySummaryDay:   0,
		WeeklySummaryHr:    8,
	}
	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
