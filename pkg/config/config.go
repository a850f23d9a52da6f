package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ontoflow/ontoflow/pkg/stores"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
)

// Config is the top-level application configuration, loaded from YAML.
type Config struct {
	// Environment is the deployment environment.
	Environment string `yaml:"environment" validate:"required,oneof=development staging production"`

	// Telemetry configures logging, tracing, metrics, and events.
	Telemetry TelemetrySettings `yaml:"telemetry"`

	// Store configures the SQLite persistence layer.
	Store StoreSettings `yaml:"store"`

	// Workflow configures the execution engine.
	Workflow WorkflowSettings `yaml:"workflow"`
}

// TelemetrySettings is the YAML-facing subset of the telemetry configuration.
// Anything not exposed here keeps its default.
type TelemetrySettings struct {
	ServiceVersion string `yaml:"service_version"`

	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=console json"`

	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingExporter string `yaml:"tracing_exporter" validate:"omitempty,oneof=otlp stdout none"`
	TracingEndpoint string `yaml:"tracing_endpoint"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsListen  string `yaml:"metrics_listen"`

	EventsEnabled bool `yaml:"events_enabled"`
}

// StoreSettings configures persistence. An empty path disables persistence
// entirely and the registries live in memory only.
type StoreSettings struct {
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// WorkflowSettings configures the execution engine.
type WorkflowSettings struct {
	// ScriptTimeout bounds a single scripted action invocation.
	ScriptTimeout time.Duration `yaml:"script_timeout"`

	// ActionsDir is an optional directory of Starlark action scripts loaded
	// at startup. Each *.star file registers an action named after the file.
	ActionsDir string `yaml:"actions_dir"`

	// ConditionsDir is an optional directory of Rego modules loaded at
	// startup. Each *.rego file registers a rule condition named after the
	// file.
	ConditionsDir string `yaml:"conditions_dir"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Environment: "development",
		Telemetry: TelemetrySettings{
			ServiceVersion:  "dev",
			LogLevel:        "info",
			LogFormat:       "console",
			TracingExporter: "stdout",
			MetricsEnabled:  true,
			MetricsListen:   ":9090",
			EventsEnabled:   true,
		},
		Store: StoreSettings{
			Path: "ontoflow.db",
		},
		Workflow: WorkflowSettings{
			ScriptTimeout: 30 * time.Second,
		},
	}
}

// Load reads a YAML configuration file. Unknown keys are rejected so typos
// fail loudly. Values not present in the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Telemetry.TracingEnabled && c.Telemetry.TracingExporter == "otlp" && c.Telemetry.TracingEndpoint == "" {
		return fmt.Errorf("invalid configuration: tracing_endpoint is required for the otlp exporter")
	}
	return nil
}

// TelemetryConfig projects the settings onto a full telemetry configuration.
func (c *Config) TelemetryConfig() *telemetry.Config {
	tc := telemetry.DefaultConfig()
	if c.Environment == "production" {
		tc = telemetry.ProductionConfig()
	}
	tc.Environment = c.Environment

	if c.Telemetry.ServiceVersion != "" {
		tc.ServiceVersion = c.Telemetry.ServiceVersion
	}
	if c.Telemetry.LogLevel != "" {
		tc.Logging.Level = c.Telemetry.LogLevel
	}
	if c.Telemetry.LogFormat != "" {
		tc.Logging.Format = c.Telemetry.LogFormat
	}

	tc.Tracing.Enabled = c.Telemetry.TracingEnabled
	if c.Telemetry.TracingExporter != "" {
		tc.Tracing.Exporter = c.Telemetry.TracingExporter
	}
	tc.Tracing.Endpoint = c.Telemetry.TracingEndpoint

	tc.Metrics.Enabled = c.Telemetry.MetricsEnabled
	if c.Telemetry.MetricsListen != "" {
		tc.Metrics.ListenAddress = c.Telemetry.MetricsListen
	}

	tc.Events.Enabled = c.Telemetry.EventsEnabled
	return tc
}

// StoreConfig projects the settings onto a store configuration.
func (c *Config) StoreConfig() stores.Config {
	return stores.Config{
		Path:            c.Store.Path,
		MaxOpenConns:    c.Store.MaxOpenConns,
		MaxIdleConns:    c.Store.MaxIdleConns,
		ConnMaxLifetime: c.Store.ConnMaxLifetime,
	}
}
