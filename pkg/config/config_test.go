package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
environment: production
telemetry:
  log_level: warn
  log_format: json
  metrics_listen: ":9191"
store:
  path: /var/lib/ontoflow/data.db
workflow:
  script_timeout: 10s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Telemetry.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.Telemetry.LogLevel)
	}
	if cfg.Store.Path != "/var/lib/ontoflow/data.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if cfg.Workflow.ScriptTimeout != 10*time.Second {
		t.Errorf("script timeout = %v", cfg.Workflow.ScriptTimeout)
	}
	// Untouched values keep defaults.
	if !cfg.Telemetry.MetricsEnabled {
		t.Error("metrics_enabled default was lost")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.yaml", `
environment: development
telemtry:
  log_level: debug
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted a misspelled section")
	}
}

func TestLoadRejectsBadEnvironment(t *testing.T) {
	path := writeFile(t, "config.yaml", "environment: prod\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an unknown environment")
	}
}

func TestValidateRequiresOTLPEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.TracingEnabled = true
	cfg.Telemetry.TracingExporter = "otlp"
	cfg.Telemetry.TracingEndpoint = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted otlp tracing without an endpoint")
	}
	if !strings.Contains(err.Error(), "tracing_endpoint") {
		t.Errorf("error does not name the missing field: %v", err)
	}
}

func TestTelemetryConfigProjection(t *testing.T) {
	cfg := Default()
	cfg.Environment = "production"
	cfg.Telemetry.LogLevel = "error"
	cfg.Telemetry.TracingEnabled = true
	cfg.Telemetry.TracingExporter = "otlp"
	cfg.Telemetry.TracingEndpoint = "collector:4317"

	tc := cfg.TelemetryConfig()
	if tc.Environment != "production" {
		t.Errorf("environment = %q", tc.Environment)
	}
	if tc.Logging.Level != "error" {
		t.Errorf("log level = %q", tc.Logging.Level)
	}
	if !tc.Tracing.Enabled || tc.Tracing.Endpoint != "collector:4317" {
		t.Errorf("tracing = %+v", tc.Tracing)
	}
	if err := tc.Validate(); err != nil {
		t.Errorf("projected telemetry config is invalid: %v", err)
	}
}
