package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	Browser  BrowserConfig  `toml:"browser"`
}

// APIConfig contains the remote movie API settings.
type APIConfig struct {
	BaseURL     string        `toml:"base_url" validate:"required,url"`
	RefreshPath string        `toml:"refresh_path" validate:"required,startswith=/"`
	Timeout     time.Duration `toml:"timeout"`
	RateLimit   float64       `toml:"rate_limit" validate:"gte=0"`
	Burst       int           `toml:"burst" validate:"gte=0"`
}

// SessionConfig controls the session refresh protocol.
type SessionConfig struct {
	RefreshTimeout      time.Duration `toml:"refresh_timeout"`
	ClearOnRefreshError bool          `toml:"clear_on_refresh_error"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// BrowserConfig contains settings for opening trailers.
type BrowserConfig struct {
	TrailerURL string `toml:"trailer_url" validate:"required,contains=%s"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

// Validate checks struct tags and the duration fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, formatValidationErrors(err))
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive", ErrInvalidConfig)
	}
	if c.Session.RefreshTimeout <= 0 {
		return fmt.Errorf("%w: session.refresh_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// formatValidationErrors converts [validator.ValidationErrors] into a single readable message.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a valid URL", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "startswith":
			messages = append(messages, fmt.Sprintf("%s must start with %q", field, e.Param()))
		case "contains":
			messages = append(messages, fmt.Sprintf("%s must contain %q", field, e.Param()))
		case "min", "gte":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "max", "lte":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", field, e.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}

// ValidateStruct runs tag validation on any request payload.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, formatValidationErrors(err))
	}
	return nil
}
