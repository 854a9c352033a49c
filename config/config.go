// Package config resolves telemetry client configuration from explicit
// values, environment variables, and defaults, in that priority order. It
// also owns the opt-in/opt-out mechanics and the anonymous user identity
// file. The pipeline itself only ever sees a fully resolved Config.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Backend selects the transport the client ships events through.
type Backend string

const (
	BackendOTLP       Backend = "otlp"
	BackendClickHouse Backend = "clickhouse"
)

// Defaults applied by Resolve.
const (
	DefaultEndpoint             = "https://telemetry.namastex.ai/v1/traces"
	DefaultOrganization         = "namastex"
	DefaultTimeout              = 5 * time.Second
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 5 * time.Second
	DefaultCompressionThreshold = 1024
	DefaultMaxRetries           = 3
	DefaultRetryBackoffBase     = time.Second

	DefaultClickHouseEndpoint = "http://localhost:8123"
	DefaultClickHouseDatabase = "telemetry"
	DefaultClickHouseTable    = "traces"
	DefaultClickHouseMetrics  = "metrics"
	DefaultClickHouseLogs     = "logs"
	DefaultClickHouseUsername = "default"
)

// Config is the user-facing configuration. Zero or nil fields fall back to
// environment variables and then defaults; only ProjectName and Version are
// required.
type Config struct {
	ProjectName  string  `yaml:"project_name"`
	Version      string  `yaml:"version"`
	Organization string  `yaml:"organization"`
	Backend      Backend `yaml:"backend"`

	Endpoint        string `yaml:"endpoint"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
	LogsEndpoint    string `yaml:"logs_endpoint"`

	Timeout       time.Duration `yaml:"timeout"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`

	CompressionEnabled   *bool `yaml:"compression_enabled"`
	CompressionThreshold int   `yaml:"compression_threshold"`

	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`

	// Enabled and Verbose are tri-state: nil means "consult the
	// environment, then auto-detect".
	Enabled *bool `yaml:"enabled"`
	Verbose *bool `yaml:"verbose"`

	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig configures the direct-insert backend.
type ClickHouseConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Database     string `yaml:"database"`
	Table        string `yaml:"table"`
	MetricsTable string `yaml:"metrics_table"`
	LogsTable    string `yaml:"logs_table"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
}

// Resolved is the fully concrete configuration the client consumes. Every
// field has a usable value.
type Resolved struct {
	ProjectName  string
	Version      string
	Organization string
	Backend      Backend

	Endpoint        string
	MetricsEndpoint string
	LogsEndpoint    string

	Timeout       time.Duration
	BatchSize     int
	FlushInterval time.Duration

	CompressionEnabled   bool
	CompressionThreshold int

	MaxRetries       int
	RetryBackoffBase time.Duration

	Enabled bool
	Verbose bool

	ClickHouse ClickHouseConfig
}

// Resolve validates cfg, merges in environment overrides and defaults, and
// returns the concrete configuration. It is the only place in the SDK that
// returns a configuration error; everything downstream treats the result as
// trusted.
func Resolve(cfg Config) (Resolved, error) {
	if err := validate(cfg); err != nil {
		return Resolved{}, err
	}
	envCfg := fromEnv()

	out := Resolved{
		ProjectName:          strings.TrimSpace(cfg.ProjectName),
		Version:              strings.TrimSpace(cfg.Version),
		Organization:         firstNonEmpty(cfg.Organization, DefaultOrganization),
		Backend:              cfg.Backend,
		Endpoint:             firstNonEmpty(cfg.Endpoint, deref(envCfg.Endpoint), DefaultEndpoint),
		MetricsEndpoint:      cfg.MetricsEndpoint,
		LogsEndpoint:         cfg.LogsEndpoint,
		Timeout:              cfg.Timeout,
		BatchSize:            cfg.BatchSize,
		FlushInterval:        cfg.FlushInterval,
		CompressionEnabled:   true,
		CompressionThreshold: cfg.CompressionThreshold,
		MaxRetries:           cfg.MaxRetries,
		RetryBackoffBase:     cfg.RetryBackoffBase,
		ClickHouse:           cfg.ClickHouse,
	}

	if out.Backend == "" {
		out.Backend = BackendOTLP
	}
	if cfg.CompressionEnabled != nil {
		out.CompressionEnabled = *cfg.CompressionEnabled
	}
	if out.Timeout <= 0 {
		if envCfg.Timeout != nil && *envCfg.Timeout > 0 {
			out.Timeout = time.Duration(*envCfg.Timeout) * time.Second
		} else {
			out.Timeout = DefaultTimeout
		}
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.FlushInterval <= 0 {
		out.FlushInterval = DefaultFlushInterval
	}
	if out.CompressionThreshold <= 0 {
		out.CompressionThreshold = DefaultCompressionThreshold
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = DefaultMaxRetries
	}
	if out.RetryBackoffBase <= 0 {
		out.RetryBackoffBase = DefaultRetryBackoffBase
	}

	if out.ClickHouse.Endpoint == "" {
		out.ClickHouse.Endpoint = DefaultClickHouseEndpoint
	}
	if out.ClickHouse.Database == "" {
		out.ClickHouse.Database = DefaultClickHouseDatabase
	}
	if out.ClickHouse.Table == "" {
		out.ClickHouse.Table = DefaultClickHouseTable
	}
	if out.ClickHouse.MetricsTable == "" {
		out.ClickHouse.MetricsTable = DefaultClickHouseMetrics
	}
	if out.ClickHouse.LogsTable == "" {
		out.ClickHouse.LogsTable = DefaultClickHouseLogs
	}
	if out.ClickHouse.Username == "" {
		out.ClickHouse.Username = DefaultClickHouseUsername
	}

	switch {
	case cfg.Enabled != nil:
		out.Enabled = *cfg.Enabled
	case envCfg.Enabled != nil:
		out.Enabled = bool(*envCfg.Enabled)
	default:
		out.Enabled = DetectEnabled()
	}

	switch {
	case cfg.Verbose != nil:
		out.Verbose = *cfg.Verbose
	case envCfg.Verbose != nil:
		out.Verbose = bool(*envCfg.Verbose)
	}

	return out, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.ProjectName) == "" {
		return fmt.Errorf("config: project name is required and cannot be empty")
	}
	if strings.TrimSpace(cfg.Version) == "" {
		return fmt.Errorf("config: version is required and cannot be empty")
	}
	switch cfg.Backend {
	case "", BackendOTLP, BackendClickHouse:
	default:
		return fmt.Errorf("config: unknown backend %q (want otlp or clickhouse)", cfg.Backend)
	}
	for _, endpoint := range []string{cfg.Endpoint, cfg.MetricsEndpoint, cfg.LogsEndpoint, cfg.ClickHouse.Endpoint} {
		if endpoint == "" {
			continue
		}
		if err := validateEndpoint(endpoint); err != nil {
			return err
		}
	}
	if cfg.Timeout > 60*time.Second {
		return fmt.Errorf("config: timeout should not exceed 60s (got %s)", cfg.Timeout)
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("config: endpoint %q is not a valid URL: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("config: endpoint %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("config: endpoint %q has no host", endpoint)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
