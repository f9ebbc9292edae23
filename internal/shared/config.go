package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"

	// MaxBatchSize is the most track IDs the several-tracks endpoint accepts per request.
	MaxBatchSize = 50
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Enrich  EnrichConfig  `toml:"enrich"`
	Log     LogConfig     `toml:"log"`
}

// SpotifyConfig contains catalog API credentials and transport settings.
type SpotifyConfig struct {
	ClientID          string   `toml:"client_id"`
	ClientSecret      string   `toml:"client_secret"`
	TokenURL          string   `toml:"token_url"`
	APIBaseURL        string   `toml:"api_base_url"`
	RequestTimeout    Duration `toml:"request_timeout"`
	RateLimitBackoff  Duration `toml:"rate_limit_backoff"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// EnrichConfig contains the batch enrichment settings.
type EnrichConfig struct {
	Input               string   `toml:"input"`
	Output              string   `toml:"output"`
	PopularityThreshold int      `toml:"popularity_threshold"`
	BatchSize           int      `toml:"batch_size"`
	Pacing              Duration `toml:"pacing"`
	ProgressEvery       int      `toml:"progress_every"`
	RetryAttempts       uint64   `toml:"retry_attempts"`
	RetryDelay          Duration `toml:"retry_delay"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so it can be written as "500ms" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials with SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET.
//
// A .env file in the working directory is read first when present; variables already set in the process environment win.
func (c *Config) ApplyEnv(envFiles ...string) {
	_ = godotenv.Load(envFiles...)

	if v := os.Getenv(EnvClientID); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Spotify.ClientSecret = v
	}
}

// Validate checks the values the enrichment pipeline depends on.
func (c *Config) Validate() error {
	if c.Enrich.BatchSize < 1 || c.Enrich.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: batch_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxBatchSize, c.Enrich.BatchSize)
	}
	if c.Enrich.ProgressEvery < 1 {
		return fmt.Errorf("%w: progress_every must be positive, got %d", ErrInvalidConfig, c.Enrich.ProgressEvery)
	}
	if c.Enrich.Pacing.Duration < 0 || c.Enrich.RetryDelay.Duration < 0 {
		return fmt.Errorf("%w: enrich durations must not be negative", ErrInvalidConfig)
	}
	if c.Spotify.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	if c.Spotify.RateLimitBackoff.Duration < 0 {
		return fmt.Errorf("%w: rate_limit_backoff must not be negative", ErrInvalidConfig)
	}
	if c.Spotify.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// HasCredentials reports whether both client credentials are set.
func (c *Config) HasCredentials() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}
