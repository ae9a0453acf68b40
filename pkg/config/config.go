package config

import "fmt"

// Config is the top-level pagetrace configuration.
type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
	Rules   RulesConfig   `yaml:"rules"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// MonitorConfig configures the normalization session.
type MonitorConfig struct {
	// BaseTime optionally forces the session base time (absolute seconds).
	// Zero means the base time is established from the record stream.
	BaseTime float64 `yaml:"base_time"`
}

// RulesConfig configures the hintlet rule set.
type RulesConfig struct {
	// Disabled lists rule names that must not be registered.
	Disabled []string      `yaml:"disabled"`
	NotGzip  NotGzipConfig `yaml:"not_gzip"`
}

// NotGzipConfig configures the "Uncompressed Resource" rule.
type NotGzipConfig struct {
	MinSizeRaw        string   `yaml:"min_size"` // human-readable, e.g. "150B", "4KB"
	MinSize           int64    `yaml:"-"`
	CompressibleTypes []string `yaml:"compressible_types"`
	AcceptedEncodings []string `yaml:"accepted_encodings"`
}

// StoreConfig configures the badger trace store.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig configures the Prometheus metrics and health endpoint.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"` // pointer to distinguish unset from false; default true
	Addr    string `yaml:"addr"`    // listen address; default ":9090"
}

// MetricsEnabled returns whether the metrics server should run.
func (m MetricsConfig) MetricsEnabled() bool {
	if m.Enabled == nil {
		return true // default: enabled
	}
	return *m.Enabled
}

// RuleDisabled reports whether the named rule is disabled.
func (r RulesConfig) RuleDisabled(name string) bool {
	for _, d := range r.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.Monitor.BaseTime < 0 {
		return fmt.Errorf("config: monitor.base_time must not be negative, got %v", c.Monitor.BaseTime)
	}
	if c.Rules.NotGzip.MinSize < 0 {
		return fmt.Errorf("config: rules.not_gzip.min_size must not be negative, got %d", c.Rules.NotGzip.MinSize)
	}
	for _, enc := range c.Rules.NotGzip.AcceptedEncodings {
		if enc == "" {
			return fmt.Errorf("config: rules.not_gzip.accepted_encodings contains an empty value")
		}
	}
	for _, t := range c.Rules.NotGzip.CompressibleTypes {
		if t == "" {
			return fmt.Errorf("config: rules.not_gzip.compressible_types contains an empty value")
		}
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required when the store is enabled")
	}
	return nil
}
