// ABOUTME: Configuration loading and parsing for confstore
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete confstore configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Seed     SeedConfig     `yaml:"seed"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	// TokenExpiry is how long issued access tokens stay valid.
	// Defaults to 24h when unset.
	TokenExpiry    time.Duration `yaml:"-"`
	TokenExpiryRaw string        `yaml:"token_expiry"`

	// BcryptCost overrides the password hashing cost. 0 means the
	// library default.
	BcryptCost int `yaml:"bcrypt_cost"`
}

// SeedConfig points at the TOML seed file applied by `confstore seed`
type SeedConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultTokenExpiry is used when auth.token_expiry is not configured.
const DefaultTokenExpiry = 24 * time.Hour

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ResolvePath returns the config file path to load.
//
// Resolution order:
//  1. CONFSTORE_CONFIG environment variable
//  2. ./confstore.yaml in the current directory
//  3. $XDG_CONFIG_HOME/confstore/config.yaml (or ~/.config/confstore/config.yaml)
func ResolvePath() string {
	if p := os.Getenv("CONFSTORE_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("confstore.yaml"); err == nil {
		return "confstore.yaml"
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "confstore.yaml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "confstore", "config.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Auth.TokenExpiryRaw == "" {
		cfg.Auth.TokenExpiry = DefaultTokenExpiry
		return nil
	}

	d, err := time.ParseDuration(cfg.Auth.TokenExpiryRaw)
	if err != nil {
		return fmt.Errorf("parsing token_expiry %q: %w", cfg.Auth.TokenExpiryRaw, err)
	}
	cfg.Auth.TokenExpiry = d
	return nil
}
