package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the interview gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Hosted AI service configuration (chat + speech synthesis)
	AIBaseURL string `envconfig:"AI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	AIAPIKey  string `envconfig:"AI_API_KEY" required:"true"`
	ChatModel string `envconfig:"CHAT_MODEL" default:"gemini-2.0-flash"` // Model used for questions and feedback
	TTSModel  string `envconfig:"TTS_MODEL" default:"gemini-2.5-flash-preview-tts"`
	TTSVoice  string `envconfig:"TTS_VOICE" default:"Kore"` // Prebuilt voice name

	// Audio configuration
	TTSSampleRate int `envconfig:"TTS_SAMPLE_RATE" default:"24000"` // Sample rate of PCM returned by the TTS API
	AITimeout     int `envconfig:"AI_TIMEOUT" default:"60"`         // HTTP timeout for AI requests in seconds

	// Interview configuration
	MaxQuestions int `envconfig:"MAX_QUESTIONS" default:"10"` // Questions per interview session

	// Resilience configuration
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"5"`             // Maximum attempts per AI call
	RetryInitialDelay          int `envconfig:"RETRY_INITIAL_DELAY" default:"1000"`         // Initial backoff in milliseconds
	RetryMaxDelay              int `envconfig:"RETRY_MAX_DELAY" default:"0"`                // Backoff cap in milliseconds, 0 = uncapped
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is required")
	}
	if cfg.TTSSampleRate <= 0 {
		return nil, fmt.Errorf("TTS_SAMPLE_RATE must be positive, got %d", cfg.TTSSampleRate)
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", cfg.RetryMaxAttempts)
	}

	return &cfg, nil
}

// RetryInitialDelayDuration returns the initial retry backoff as a duration
func (c *Config) RetryInitialDelayDuration() time.Duration {
	return time.Duration(c.RetryInitialDelay) * time.Millisecond
}

// RetryMaxDelayDuration returns the retry backoff cap as a duration
func (c *Config) RetryMaxDelayDuration() time.Duration {
	return time.Duration(c.RetryMaxDelay) * time.Millisecond
}

// AITimeoutDuration returns the AI request timeout as a duration
func (c *Config) AITimeoutDuration() time.Duration {
	return time.Duration(c.AITimeout) * time.Second
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
