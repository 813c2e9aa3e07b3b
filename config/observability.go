package config

import (
	"strings"
)

// ObservabilityConfig groups configuration that controls metrics and logging.
type ObservabilityConfig struct {
	Metrics    ObservabilityMetricsConfig
	Prometheus PrometheusConfig
	Log        LogConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Prometheus.Sanitize()
	c.Log.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// PrometheusConfig controls the pull-based /metrics endpoint.
type PrometheusConfig struct {
	Enabled bool   `env:"METRICS_PROMETHEUS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PROMETHEUS_PATH"    envDefault:"/metrics"`
}

// Sanitize normalises the metrics path.
func (c *PrometheusConfig) Sanitize() {
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// File enables rotating file output in addition to stdout.
	File           string `env:"LOG_FILE"`
	FileMaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB"  envDefault:"100"`
	FileMaxBackups int    `env:"LOG_FILE_MAX_BACKUPS"  envDefault:"5"`
	FileMaxAgeDays int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"14"`
	FileCompress   bool   `env:"LOG_FILE_COMPRESS"     envDefault:"true"`
}

// Sanitize normalises logging configuration values.
func (c *LogConfig) Sanitize() {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	if c.Level == "" {
		c.Level = "info"
	}
	c.File = strings.TrimSpace(c.File)
	if c.FileMaxSizeMB <= 0 {
		c.FileMaxSizeMB = 100
	}
	if c.FileMaxBackups < 0 {
		c.FileMaxBackups = 0
	}
	if c.FileMaxAgeDays < 0 {
		c.FileMaxAgeDays = 0
	}
}
