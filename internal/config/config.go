// Package config handles resolving configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/stolasapp/animes/internal/sec"
)

// EnvPrefix prefixes the environment variables that override file values,
// e.g. ANIMES_WEB_ADDRESS.
const EnvPrefix = "ANIMES"

// Config is the process configuration. It is loaded once at startup and
// passed explicitly to the components that need it.
type Config struct {
	LogLevel        slog.Level    `yaml:"log_level"        envconfig:"LOG_LEVEL"`
	DevMode         bool          `yaml:"dev_mode"         envconfig:"DEV_MODE"`
	WebAddress      string        `yaml:"web_address"      envconfig:"WEB_ADDRESS"      validate:"required,hostname_port"`
	DBFilepath      string        `yaml:"db_filepath"      envconfig:"DB_FILEPATH"      validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     envconfig:"READ_TIMEOUT"     validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    envconfig:"WRITE_TIMEOUT"    validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	Security        sec.Config    `yaml:"security"         envconfig:"SECURITY"`
}

// Default returns a version of the config with all default values populated.
func Default() *Config {
	return &Config{
		LogLevel:        slog.LevelInfo,
		WebAddress:      "localhost:8080",
		DBFilepath:      filepath.Join(xdg.DataHome, "animes", "db.sqlite"),
		ReadTimeout:     5 * time.Second,  //nolint:mnd // default
		WriteTimeout:    10 * time.Second, //nolint:mnd // default
		ShutdownTimeout: 10 * time.Second, //nolint:mnd // default
		Security:        sec.DefaultConfig(),
	}
}

// Load loads a YAML configuration file from a path, merges it with defaults,
// applies environment overrides, and validates it for completeness.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // allow the config file to be loaded from anywhere
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err = decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
	}
	if err = envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err = Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML suitable for [Load].
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd // conventional YAML indent
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks struct constraints and the access rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if _, err := sec.NewPolicy(cfg.Security.Rules); err != nil {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
