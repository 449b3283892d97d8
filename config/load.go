package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads path (if not empty), applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownSeconds == 0 {
		cfg.Server.ShutdownSeconds = DefaultShutdownSeconds
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Database.Path == "" && !cfg.Database.Memory {
		cfg.Database.Path = DefaultDatabasePath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Engine.BatchParallelism == 0 {
		cfg.Engine.BatchParallelism = DefaultBatchParallel
	}
}

// applyEnvOverrides applies REGELMOTOR_SECTION_FIELD variables.
// A number that does not parse is an error; the configured value is kept.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("REGELMOTOR_SERVER_PORT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("REGELMOTOR_SERVER_PORT must be a number, got %q", val)
		}
		cfg.Server.Port = i
	}
	if val := os.Getenv("REGELMOTOR_DATABASE_PATH"); val != "" {
		cfg.Database.Path = val
		cfg.Database.Memory = false
	}
	if val := os.Getenv("REGELMOTOR_LOG_LEVEL"); val != "" {
		cfg.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("REGELMOTOR_LOG_FORMAT"); val != "" {
		cfg.Log.Format = strings.ToLower(val)
	}
	return nil
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if cfg.Server.ShutdownSeconds < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_seconds must not be negative"))
	}
	if cfg.Database.Path == "" && !cfg.Database.Memory {
		errs = append(errs, fmt.Errorf("database.path is required unless database.memory is set"))
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format))
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", cfg.Metrics.Path))
	}
	if cfg.Engine.BatchParallelism < 0 {
		errs = append(errs, fmt.Errorf("engine.batch_parallelism must not be negative"))
	}

	return errors.Join(errs...)
}
