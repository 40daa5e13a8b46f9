// Package config defines the data structures related to configuration and
// includes functions for loading and interpreting the config.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"github.com/iwvelando/fi-dashboard/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for fi-dashboard.
type Configuration struct {
	Dashboard DashboardConfig  `mapstructure:"dashboard" yaml:"dashboard,omitempty"`
	Data      DataConfig       `mapstructure:"data" yaml:"data,omitempty"`
	Forecast  ForecastSettings `mapstructure:"forecast" yaml:"forecast,omitempty"`
	Logging   LoggingConfig    `mapstructure:"logging" yaml:"logging,omitempty"`
	Output    OutputConfig     `mapstructure:"output" yaml:"output,omitempty"`

	// baseDir anchors relative data paths; empty means the working directory.
	baseDir string
}

// DashboardConfig holds presentation settings.
type DashboardConfig struct {
	Country string `mapstructure:"country" yaml:"country,omitempty"`
}

// DataConfig locates the two input tables.
type DataConfig struct {
	EnrichedPath string `mapstructure:"enrichedPath" yaml:"enrichedPath,omitempty"`
	ForecastPath string `mapstructure:"forecastPath" yaml:"forecastPath,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, xlsx
}

// Default returns a configuration that points at the default data locations
// relative to the working directory.
func Default() *Configuration {
	conf := &Configuration{}
	conf.applyDefaults()
	return conf
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Relative data paths resolve against the directory of
// the configuration file.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix("FI_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}
	conf.baseDir = filepath.Dir(configPath)
	return conf, nil
}

// LoadConfigurationFromReader loads a YAML configuration from r. Relative
// data paths resolve against the working directory.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.applyDefaults()
	return &configuration, nil
}

func (c *Configuration) applyDefaults() {
	if c.Dashboard.Country == "" {
		c.Dashboard.Country = "Ethiopia"
	}
	if c.Data.EnrichedPath == "" {
		c.Data.EnrichedPath = constants.DefaultEnrichedDataPath
	}
	if c.Data.ForecastPath == "" {
		c.Data.ForecastPath = constants.DefaultForecastDataPath
	}
}

// SetBaseDir overrides the directory that relative data paths resolve against.
func (c *Configuration) SetBaseDir(dir string) {
	c.baseDir = dir
}

// ResolvePath anchors a relative path at the configuration base directory.
func (c *Configuration) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

// EnrichedPath is the resolved location of the enriched dataset.
func (c *Configuration) EnrichedPath() string {
	return c.ResolvePath(c.Data.EnrichedPath)
}

// ForecastPath is the resolved location of the forecast table.
func (c *Configuration) ForecastPath() string {
	return c.ResolvePath(c.Data.ForecastPath)
}

// ForecastConfig builds the immutable forecast configuration from the
// forecast section.
func (c *Configuration) ForecastConfig() (ForecastConfig, error) {
	return NewForecastConfig(c.Forecast)
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if warning := validation.ValidateDataPath("enriched", c.EnrichedPath()); warning != "" {
		warnings = append(warnings, warning)
	}
	if warning := validation.ValidateDataPath("forecast", c.ForecastPath()); warning != "" {
		warnings = append(warnings, warning+" (illustrative fallback forecast will be used)")
	}

	fc, err := c.ForecastConfig()
	if err != nil {
		return append(warnings, fmt.Sprintf("forecast settings are invalid: %v", err))
	}

	horizonEnd := fmt.Sprintf("%d-12-31", fc.LastForecastYear())
	for _, event := range fc.Events() {
		warning, err := validation.ValidateEventDate(event.Key, event.Date.Format(constants.DateLayout), horizonEnd)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	return warnings
}
