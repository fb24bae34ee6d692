// Package config provides unified configuration loading for simsweep.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/nvandessel/simsweep/internal/constants"
	"gopkg.in/yaml.v3"
)

// SweepConfig contains all simsweep configuration settings.
type SweepConfig struct {
	// Run contains settings for executing runs and batches.
	Run RunConfig `json:"run" yaml:"run"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RunConfig configures run execution.
type RunConfig struct {
	// MaxConcurrency bounds the number of runs in flight. 0 means one per CPU.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// TargetTime is the simulated time at which each run stops.
	TargetTime float64 `json:"target_time" yaml:"target_time"`

	// OutputDir is the parent directory of batch and run directories.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MaxCombinations refuses batches that would compile to more runs.
	// 0 disables the check.
	MaxCombinations int `json:"max_combinations" yaml:"max_combinations"`
}

// Concurrency returns MaxConcurrency, substituting the CPU count for 0.
func (c RunConfig) Concurrency() int {
	if c.MaxConcurrency <= 0 {
		return runtime.NumCPU()
	}
	return c.MaxConcurrency
}

// LoggingConfig configures simsweep's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "error", "warn", "info" (default),
	// "debug", or "trace". "debug" enables event logging to
	// <batch dir>/events.jsonl. "trace" additionally logs every step.
	Level string `json:"level" yaml:"level"`

	// Format selects the stderr log encoding: "text" (default) or "json".
	Format string `json:"format" yaml:"format"`
}

// Default returns a SweepConfig with sensible defaults.
func Default() *SweepConfig {
	return &SweepConfig{
		Run: RunConfig{
			MaxConcurrency:  0,
			TargetTime:      constants.DefaultTargetTime,
			OutputDir:       ".",
			MaxCombinations: constants.DefaultMaxCombinations,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Dir returns the user-level configuration directory, ~/.simsweep.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.ConfigDirName), nil
}

// Path returns the location of the user-level configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.simsweep/config.yaml -> environment variables
func Load() (*SweepConfig, error) {
	config := Default()

	// Try to load from default config file
	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*SweepConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in the output directory
	config.Run.OutputDir = expandEnvVars(config.Run.OutputDir)

	return config, nil
}

// Save writes the configuration to path, creating its directory.
func Save(config *SweepConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *SweepConfig) Validate() error {
	if c.Run.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be non-negative, got %d", c.Run.MaxConcurrency)
	}

	if c.Run.TargetTime <= 0 {
		return fmt.Errorf("target_time must be positive, got %g", c.Run.TargetTime)
	}

	if c.Run.MaxCombinations < 0 {
		return fmt.Errorf("max_combinations must be non-negative, got %d", c.Run.MaxCombinations)
	}

	if strings.TrimSpace(c.Run.OutputDir) == "" {
		return fmt.Errorf("output_dir must not be empty")
	}

	validLevels := map[string]bool{"error": true, "warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Values that do not parse are ignored.
func applyEnvOverrides(config *SweepConfig) {
	if v := os.Getenv("SIMSWEEP_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Run.MaxConcurrency = n
		}
	}

	if v := os.Getenv("SIMSWEEP_TARGET_TIME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Run.TargetTime = f
		}
	}

	if v := os.Getenv("SIMSWEEP_OUTPUT_DIR"); v != "" {
		config.Run.OutputDir = expandEnvVars(v)
	}

	if v := os.Getenv("SIMSWEEP_MAX_COMBINATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Run.MaxCombinations = n
		}
	}

	if v := os.Getenv("SIMSWEEP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("SIMSWEEP_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
