package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/iwvelando/fi-dashboard/internal/config"
	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address      string               `yaml:"address"`
	ReadTimeout  string               `yaml:"readTimeout"`
	WriteTimeout string               `yaml:"writeTimeout"`
	Logging      config.LoggingConfig `yaml:"logging"`

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := cfg.normalize(); err != nil {
		panic(fmt.Sprintf("invalid default server config: %v", err))
	}
	return cfg
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadTimeoutDuration returns the parsed read timeout.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return c.readTimeout
}

// WriteTimeoutDuration returns the parsed write timeout.
func (c *Config) WriteTimeoutDuration() time.Duration {
	return c.writeTimeout
}

// SetAddress overrides the listen address.
func (c *Config) SetAddress(address string) {
	if trimmed := strings.TrimSpace(address); trimmed != "" {
		c.Address = trimmed
	}
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = constants.DefaultServerAddress
	}

	var err error
	if c.readTimeout, err = parseTimeout("readTimeout", &c.ReadTimeout, constants.DefaultReadTimeout); err != nil {
		return err
	}
	if c.writeTimeout, err = parseTimeout("writeTimeout", &c.WriteTimeout, constants.DefaultWriteTimeout); err != nil {
		return err
	}
	return nil
}

func parseTimeout(name string, value *string, fallback string) (time.Duration, error) {
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		trimmed = fallback
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, *value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, *value)
	}
	*value = trimmed
	return d, nil
}
