// Package config loads the server configuration from a YAML file
// with environment-variable overrides. The loaded value is immutable:
// it is built once at process start and passed explicitly to the
// components that need it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mocknest/mocknest/internal/id"
)

// Config is the full server configuration.
type Config struct {
	// Listen is the address the combined management/proxy server
	// binds to.
	Listen string `yaml:"listen"`

	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects the relational backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuthConfig holds the credential-signing settings.
type AuthConfig struct {
	// JWTSecret signs management credentials. When empty a random
	// secret is generated at startup, which invalidates sessions on
	// restart.
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is the credential lifetime, e.g. "168h".
	TokenTTL string `yaml:"token_ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":7788",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "mocknest.db",
		},
		Auth: AuthConfig{
			TokenTTL: "168h",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path, merged over defaults,
// then applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays MOCKNEST_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MOCKNEST_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("MOCKNEST_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("MOCKNEST_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MOCKNEST_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MOCKNEST_TOKEN_TTL"); v != "" {
		cfg.Auth.TokenTTL = v
	}
	if v := os.Getenv("MOCKNEST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MOCKNEST_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// Validate checks the configuration for shape errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Auth.TokenTTL != "" {
		if _, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
			return fmt.Errorf("auth.token_ttl: %w", err)
		}
	}
	return nil
}

// TokenTTL parses the configured credential lifetime. Validate has
// already rejected malformed values.
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTL == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Auth.TokenTTL)
	return d
}

// EnsureSecret returns the configured signing secret, generating a
// random one when unset. The generated flag lets the caller warn that
// sessions will not survive a restart.
func (c *Config) EnsureSecret() (secret string, generated bool, err error) {
	if c.Auth.JWTSecret != "" {
		return c.Auth.JWTSecret, false, nil
	}
	secret, err = id.Hex(64)
	if err != nil {
		return "", false, fmt.Errorf("generate jwt secret: %w", err)
	}
	return secret, true, nil
}
