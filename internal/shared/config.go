package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is the prefix for environment overrides, e.g. COURSEX_API__BASE_URL sets api.base_url.
const EnvPrefix = "COURSEX_"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Ratings  RatingsConfig  `toml:"ratings"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// APIConfig contains settings for the remote course service.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutMS         int     `toml:"timeout_ms"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SessionConfig contains session engine settings.
type SessionConfig struct {
	InitTimeoutMS int  `toml:"init_timeout_ms"`
	Ephemeral     bool `toml:"ephemeral"`
}

// RatingsConfig contains rating engine settings.
type RatingsConfig struct {
	SuccessResetMS int `toml:"success_reset_ms"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MetricsConfig contains metrics export settings.
type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// Timeout returns the per-request deadline.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// InitTimeout returns the session initialization guard deadline.
func (c SessionConfig) InitTimeout() time.Duration {
	return time.Duration(c.InitTimeoutMS) * time.Millisecond
}

// SuccessReset returns how long a succeeded rating operation stays visible before reverting to idle.
func (c RatingsConfig) SuccessReset() time.Duration {
	return time.Duration(c.SuccessResetMS) * time.Millisecond
}

// Validate reports configuration values the client cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.API.TimeoutMS <= 0 {
		return fmt.Errorf("%w: api.timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.Session.InitTimeoutMS <= 0 {
		return fmt.Errorf("%w: session.init_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.Ratings.SuccessResetMS < 0 {
		return fmt.Errorf("%w: ratings.success_reset_ms must not be negative", ErrInvalidConfig)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: api.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a TOML configuration file from the specified path on top of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// ApplyEnv overlays COURSEX_<SECTION>__<KEY> environment variables onto config.
//
// A .env file in the working directory is loaded first when present; variables already set in the environment win.
func ApplyEnv(config *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")
	provider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "toml"}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ResolveConfig loads path when it exists (defaults otherwise), applies environment overrides and validates the result.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
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
