// Package config holds the simulation's tunables: physical-machine
// topology, storage capacity, autoscaler policy constants, and the
// ambient logging/metrics/tracing settings, loaded from a YAML file and/or
// VCSIM_-prefixed environment variables.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PMConfig describes one class of physical machine in the simulated data
// centre's topology (spec.md §6: "<cores-per-pm> <num-pms>").
type PMConfig struct {
	Count                int     `yaml:"count"`
	Cores                int     `yaml:"cores"`
	MemoryMB             int     `yaml:"memory_mb"`
	PerCoreProcessingPwr float64 `yaml:"per_core_processing_pwr"`
}

// PolicyConfig overrides the autoscaler policy constants (spec.md §4.3).
// Fields a config file omits keep DefaultConfig's values, which equal the
// package defaults in internal/vi; an explicit zero is used as given.
type PolicyConfig struct {
	Class        string  `yaml:"class"` // "threshold", "vm_creation_priority", "pooling"
	MinUtil      float64 `yaml:"min_util"`
	MaxUtil      float64 `yaml:"max_util"`
	IdleTicks    int     `yaml:"idle_ticks"`
	Headroom     int     `yaml:"headroom"`
	TickPeriodMs int64   `yaml:"tick_period_ms"`
	RandomSeed   int64   `yaml:"random_seed"`
}

// StorageConfig bounds the VMI repository's capacity (spec.md §4.2).
type StorageConfig struct {
	CapacityBytes int64 `yaml:"capacity_bytes"`
}

// TracingConfig holds OpenTelemetry tracing settings, matching the
// teacher's ObservabilityConfig.Tracing shape.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // otlp-http, stdout
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"` // :9090
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Config is the full simulation configuration.
type Config struct {
	PMs     []PMConfig    `yaml:"pms"`
	Policy  PolicyConfig  `yaml:"policy"`
	Storage StorageConfig `yaml:"storage"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the configuration used when neither a file nor
// environment overrides are present: a single class of 4 PMs, the
// Threshold policy at its spec.md §4.3 defaults, and text logging at info
// level.
func DefaultConfig() *Config {
	return &Config{
		PMs: []PMConfig{
			{Count: 4, Cores: 16, MemoryMB: 65536, PerCoreProcessingPwr: 1.0},
		},
		Policy: PolicyConfig{
			Class:        "threshold",
			MinUtil:      0.2,
			MaxUtil:      0.75,
			IdleTicks:    30,
			Headroom:     4,
			TickPeriodMs: 2 * 60 * 1000,
			RandomSeed:   1,
		},
		Storage: StorageConfig{
			CapacityBytes: 16 << 30,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			ServiceName: "vcsim",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "vcsim",
			Addr:      ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a YAML file, layered over
// DefaultConfig so an omitted section keeps its default.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv applies VCSIM_-prefixed environment variable overrides to cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("VCSIM_POLICY_CLASS"); v != "" {
		cfg.Policy.Class = v
	}
	if v := os.Getenv("VCSIM_POLICY_MIN_UTIL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Policy.MinUtil = f
		}
	}
	if v := os.Getenv("VCSIM_POLICY_MAX_UTIL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Policy.MaxUtil = f
		}
	}
	if v := os.Getenv("VCSIM_POLICY_IDLE_TICKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Policy.IdleTicks = n
		}
	}
	if v := os.Getenv("VCSIM_POLICY_HEADROOM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Policy.Headroom = n
		}
	}
	if v := os.Getenv("VCSIM_POLICY_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Policy.RandomSeed = n
		}
	}
	if v := os.Getenv("VCSIM_STORAGE_CAPACITY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Storage.CapacityBytes = n
		}
	}
	if v := os.Getenv("VCSIM_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("VCSIM_TRACING_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	}
	if v := os.Getenv("VCSIM_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("VCSIM_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("VCSIM_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("VCSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VCSIM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
