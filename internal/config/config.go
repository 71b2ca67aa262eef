package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the companion call service.
// Environment variables are parsed from the COMPANION_ prefix.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Store Configuration
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"companion.db"`

	// Reply generator (OpenAI-compatible chat completions)
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com"`
	ReplyModel    string `envconfig:"REPLY_MODEL" default:"gpt-4o-mini"`

	// Speech synthesizer (ElevenLabs)
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY" default:""`
	ElevenLabsBaseURL string `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`
	SynthModel        string `envconfig:"SYNTH_MODEL" default:"eleven_multilingual_v2"`
	DefaultVoiceID    string `envconfig:"DEFAULT_VOICE_ID" default:""`

	// Scheduler
	ReferenceTimezone   string `envconfig:"REFERENCE_TIMEZONE" default:"Europe/London"`
	TickIntervalSeconds int    `envconfig:"TICK_INTERVAL_SECONDS" default:"60"`

	// Conversation
	GreetingText          string `envconfig:"GREETING_TEXT" default:"Hello, it's your companion calling. How are you today?"`
	DependencyTimeoutSecs int    `envconfig:"DEPENDENCY_TIMEOUT_SECONDS" default:"30"`

	// Health monitoring
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`

	// Log verbosity
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// ResolveDefaults derives DBDriver when set to "auto" or empty: postgres when
// a DSN is configured, sqlite otherwise.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// Validate enforces startup-fatal requirements: missing credentials must stop
// the process before it serves, not surface mid-call.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("COMPANION_OPENAI_API_KEY is required")
	}
	if c.ElevenLabsAPIKey == "" {
		return fmt.Errorf("COMPANION_ELEVENLABS_API_KEY is required")
	}
	if c.DefaultVoiceID == "" {
		return fmt.Errorf("COMPANION_DEFAULT_VOICE_ID is required")
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("COMPANION_POSTGRES_DSN is required for the postgres driver")
	}
	if _, err := time.LoadLocation(c.ReferenceTimezone); err != nil {
		return fmt.Errorf("invalid COMPANION_REFERENCE_TIMEZONE %q: %w", c.ReferenceTimezone, err)
	}
	if c.TickIntervalSeconds <= 0 {
		return fmt.Errorf("COMPANION_TICK_INTERVAL_SECONDS must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: COMPANION_HTTP_PORT, COMPANION_POSTGRES_DSN.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("COMPANION", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("reference_timezone", cfg.ReferenceTimezone).
		Int("tick_interval_s", cfg.TickIntervalSeconds).
		Str("reply_model", cfg.ReplyModel).
		Str("synth_model", cfg.SynthModel).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// Location returns the reference timezone. Validate must have succeeded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DependencyTimeout bounds outbound reply-generation and synthesis calls.
func (c *Config) DependencyTimeout() time.Duration {
	return time.Duration(c.DependencyTimeoutSecs) * time.Second
}

// TickInterval returns the scheduler cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
