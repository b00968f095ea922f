// Package config loads tool configuration from an optional gpuasm
// config file (gpuasm.yaml, gpuasm.toml, or gpuasm.json in the working
// directory or $HOME/.config/gpuasm), with GPUASM_* environment
// variables layered on top and command-line flags applied last by the
// caller.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDataPath is where the build pipeline writes the instruction
// database and where the server looks for it.
const DefaultDataPath = "data/isa.json"

// Config is the complete gpuasm configuration (v1 schema).
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Data    DataConfig    `json:"data" mapstructure:"data"`
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// DataConfig locates the instruction database snapshot.
type DataConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ServerConfig tunes the language server.
type ServerConfig struct {
	// ArchitectureOverride pins lookups to one architecture for every
	// document; clients can still replace it at initialize.
	ArchitectureOverride string `json:"architectureOverride" mapstructure:"architectureOverride"`
	// CompletionMinPrefix is the minimum typed prefix length before
	// completion answers.
	CompletionMinPrefix int `json:"completionMinPrefix" mapstructure:"completionMinPrefix"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Data: DataConfig{
			Path: DefaultDataPath,
		},
		Server: ServerConfig{
			ArchitectureOverride: "",
			CompletionMinPrefix:  1,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration, searching root and then the user's
// config directory for a gpuasm.{yaml,toml,json} file. A missing file
// yields the defaults. GPUASM_DATA overrides the snapshot path, and
// keys in general respond to GPUASM_ variables (GPUASM_LOGGING_LEVEL
// and so on).
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("data.path", DefaultDataPath)
	v.SetDefault("server.architectureOverride", "")
	v.SetDefault("server.completionMinPrefix", 1)
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("GPUASM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("data.path", "GPUASM_DATA")

	v.SetConfigName("gpuasm")
	v.AddConfigPath(root)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "gpuasm"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No file: defaults plus environment still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to gpuasm.json under root, creating
// the directory if needed.
func (c *Config) Save(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, "gpuasm.json"), append(data, '\n'), 0644)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Data.Path == "" {
		return &ConfigError{Field: "data.path", Message: "must not be empty"}
	}
	if c.Server.CompletionMinPrefix < 1 {
		return &ConfigError{Field: "server.completionMinPrefix", Message: "must be at least 1"}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be \"text\" or \"json\""}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
