// Package config provides configuration management for the paper generation service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the paper generation service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Generator contains paper generation pipeline settings.
	Generator GeneratorConfig `mapstructure:"generator"`
	// Ollama contains generation backend settings.
	Ollama OllamaConfig `mapstructure:"ollama"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
	// Cache contains retrieval cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Storage contains paper persistence settings.
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response. Paper
	// generation is long-running, so this must exceed the full pipeline
	// wall clock.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// GeneratorConfig holds paper generation pipeline settings.
type GeneratorConfig struct {
	// SectionWorkers is the number of sections generated concurrently
	// after the introduction completes.
	SectionWorkers int `mapstructure:"section_workers"`
	// MinReferences is the minimum reference count; retrieval shortfalls
	// are topped up with generic references.
	MinReferences int `mapstructure:"min_references"`
	// MaxContextChars is the maximum size of the grounding context
	// embedded in prompts.
	MaxContextChars int `mapstructure:"max_context_chars"`
	// MaxUserDataChars is the maximum total size of caller-supplied data.
	MaxUserDataChars int `mapstructure:"max_user_data_chars"`
	// RetrievalLimit is the number of grounding documents requested per paper.
	RetrievalLimit int `mapstructure:"retrieval_limit"`
	// UseGroundingDefault controls whether retrieval runs when the
	// request does not specify.
	UseGroundingDefault bool `mapstructure:"use_grounding_default"`
}

// OllamaConfig holds generation backend configuration.
type OllamaConfig struct {
	// BaseURL is the Ollama server base URL.
	BaseURL string `mapstructure:"base_url"`
	// Model is the model name passed to /api/generate.
	Model string `mapstructure:"model"`
	// Timeout is the per-call timeout; section generation on CPU-bound
	// hosts can take minutes.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBaseDelay is the base delay between retries.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	// RetryBackoffFactor multiplies the delay after each attempt.
	RetryBackoffFactor float64 `mapstructure:"retry_backoff_factor"`
}

// SemanticScholarConfig holds Semantic Scholar API settings.
type SemanticScholarConfig struct {
	// Enabled controls whether retrieval is available at all.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from PAPERGEN_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the Graph API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// CacheConfig holds retrieval cache settings.
type CacheConfig struct {
	// Dir is the directory holding cache entry files.
	Dir string `mapstructure:"dir"`
	// TTL is the freshness window for cached retrieval results.
	TTL time.Duration `mapstructure:"ttl"`
}

// StorageConfig holds paper persistence settings.
type StorageConfig struct {
	// Dir is the directory generated papers are saved to.
	Dir string `mapstructure:"dir"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAPERGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-generator-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.SemanticScholar.APIKey = os.Getenv("PAPERGEN_SEMANTIC_SCHOLAR_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Generator defaults
	v.SetDefault("generator.section_workers", 3)
	v.SetDefault("generator.min_references", 15)
	v.SetDefault("generator.max_context_chars", 8000)
	v.SetDefault("generator.max_user_data_chars", 10000)
	v.SetDefault("generator.retrieval_limit", 15)
	v.SetDefault("generator.use_grounding_default", true)

	// Ollama defaults
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.1:8b")
	v.SetDefault("ollama.timeout", "10m")
	v.SetDefault("ollama.max_retries", 2)
	v.SetDefault("ollama.retry_base_delay", "2s")
	v.SetDefault("ollama.retry_backoff_factor", 2.0)

	// Semantic Scholar defaults
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("semantic_scholar.enabled", true)
	v.SetDefault("semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("semantic_scholar.timeout", "30s")
	v.SetDefault("semantic_scholar.rate_limit", 1.0)
	v.SetDefault("semantic_scholar.max_retries", 3)
	v.SetDefault("semantic_scholar.retry_delay", "2s")

	// Cache defaults
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.ttl", "24h")

	// Storage defaults
	v.SetDefault("storage.dir", "papers")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate generator config
	if c.Generator.SectionWorkers <= 0 {
		return fmt.Errorf("generator section_workers must be positive")
	}
	if c.Generator.MinReferences < 0 {
		return fmt.Errorf("generator min_references must not be negative")
	}
	if c.Generator.RetrievalLimit <= 0 {
		return fmt.Errorf("generator retrieval_limit must be positive")
	}
	if c.Generator.MaxContextChars <= 0 {
		return fmt.Errorf("generator max_context_chars must be positive")
	}

	// Validate Ollama config
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base_url is required")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama model is required")
	}
	if c.Ollama.MaxRetries < 0 {
		return fmt.Errorf("ollama max_retries must not be negative")
	}
	if c.Ollama.RetryBackoffFactor < 1 {
		return fmt.Errorf("ollama retry_backoff_factor must be >= 1")
	}

	// Validate Semantic Scholar config
	if c.SemanticScholar.Enabled {
		if c.SemanticScholar.BaseURL == "" {
			return fmt.Errorf("semantic_scholar base_url is required when enabled")
		}
		if c.SemanticScholar.RateLimit <= 0 {
			return fmt.Errorf("semantic_scholar rate_limit must be positive")
		}
	}

	// Validate cache config
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	return nil
}
