package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice loop service and client
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Transcription stage (speech-to-text) endpoint
	TranscriptionURL    string `envconfig:"TRANSCRIPTION_URL" default:""`
	TranscriptionAPIKey string `envconfig:"TRANSCRIPTION_API_KEY" default:""`

	// Generation stage (reply model) endpoint
	GenerationURL    string `envconfig:"GENERATION_URL" default:""`
	GenerationAPIKey string `envconfig:"GENERATION_API_KEY" default:""`

	// Synthesis stage (text-to-speech) endpoint
	SynthesisURL    string `envconfig:"SYNTHESIS_URL" default:""`
	SynthesisAPIKey string `envconfig:"SYNTHESIS_API_KEY" default:""`

	// Outbound HTTP transport configuration. A zero timeout means no deadline
	// on stage calls; the orchestrator adds no timeout layer of its own.
	StageTimeout int `envconfig:"STAGE_TIMEOUT" default:"0"` // seconds

	// Maximum accepted upload size for one utterance
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"` // 10 MiB

	// Client configuration
	ServerURL  string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	SampleRate int    `envconfig:"SAMPLE_RATE" default:"16000"` // capture sample rate in Hz

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables.
// It first attempts to load from .env file if it exists, then from environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// LoadServer loads configuration and validates the fields the pipeline service
// cannot run without. A missing stage URL or credential is startup-fatal.
func LoadServer() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateStages(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateStages checks that every stage endpoint and credential is present.
func (c *Config) ValidateStages() error {
	if c.TranscriptionURL == "" {
		return fmt.Errorf("TRANSCRIPTION_URL is required")
	}
	if c.TranscriptionAPIKey == "" {
		return fmt.Errorf("TRANSCRIPTION_API_KEY is required")
	}
	if c.GenerationURL == "" {
		return fmt.Errorf("GENERATION_URL is required")
	}
	if c.GenerationAPIKey == "" {
		return fmt.Errorf("GENERATION_API_KEY is required")
	}
	if c.SynthesisURL == "" {
		return fmt.Errorf("SYNTHESIS_URL is required")
	}
	if c.SynthesisAPIKey == "" {
		return fmt.Errorf("SYNTHESIS_API_KEY is required")
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
