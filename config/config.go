// Package config loads the regelmotor server configuration.
//
// Configuration comes from an optional YAML file, then defaults, then
// REGELMOTOR_* environment variables, then command-line flags (applied by
// cmd/server). The final result is validated before use.
package config

// Default values for configuration fields.
const (
	DefaultPort            = 8080
	DefaultDatabasePath    = "./data/regelmotor.db"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultMetricsPath     = "/metrics"
	DefaultBatchParallel   = 4
	DefaultShutdownSeconds = 10
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Engine   EngineConfig   `yaml:"engine"`
}

type ServerConfig struct {
	Port            int      `yaml:"port"`
	ShutdownSeconds int      `yaml:"shutdown_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects the calculation log. An empty Path with Memory set
// keeps calculations in process memory only.
type DatabaseConfig struct {
	Path   string `yaml:"path"`
	Memory bool   `yaml:"memory"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsEnabled reports whether /metrics is served. Defaults to true.
func (m MetricsConfig) MetricsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// EngineConfig tunes bulk evaluation.
type EngineConfig struct {
	BatchParallelism int `yaml:"batch_parallelism"`
}
