package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ontoflow/ontoflow/pkg/conditions"
	"github.com/ontoflow/ontoflow/pkg/config"
	"github.com/ontoflow/ontoflow/pkg/handlers"
	"github.com/ontoflow/ontoflow/pkg/ontology"
	"github.com/ontoflow/ontoflow/pkg/stores"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
	"github.com/ontoflow/ontoflow/pkg/workflow"
)

// app bundles everything a command needs: configuration, telemetry, the
// persistence layer, and the registries restored from it. Commands are
// one-shot, so mutations are written straight through to the store.
type app struct {
	cfg *config.Config
	tel *telemetry.Telemetry

	// store is nil when persistence is disabled (empty store path).
	store stores.Store

	schema    *ontology.Registry
	instances *ontology.Store
	handlers  *handlers.Registry
}

// openApp loads configuration, initializes telemetry, and restores state
// from the persistence layer.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if verbose {
		cfg.Telemetry.LogLevel = "debug"
	}

	tel, err := telemetry.NewTelemetry(cfg.TelemetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &app{cfg: cfg, tel: tel}

	if cfg.Store.Path == "" {
		a.schema = ontology.NewRegistry()
		a.instances = ontology.NewStore(a.schema)
		a.handlers = handlers.NewRegistry()
		return a, nil
	}

	store, err := stores.NewSQLiteStore(cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	schema, instances, registry, err := stores.Restore(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.store = store
	a.schema = schema
	a.instances = instances
	a.handlers = registry
	return a, nil
}

// Close flushes telemetry and releases the store.
func (a *app) Close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.tel.Logger.WithError(err).Warn("Failed to close store")
		}
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		a.tel.Logger.WithError(err).Warn("Telemetry shutdown failed")
	}
}

// newEngine builds the workflow engine with Rego conditions and telemetry.
// Rule conditions beyond the builtins come from *.rego files in the
// configured conditions directory, named after the file.
func (a *app) newEngine() (*workflow.Engine, error) {
	conds, err := conditions.NewRegoConditionSet(a.tel.Logger)
	if err != nil {
		return nil, err
	}

	if a.cfg.Workflow.ConditionsDir != "" {
		modules, err := filepath.Glob(filepath.Join(a.cfg.Workflow.ConditionsDir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("failed to scan conditions directory: %w", err)
		}
		for _, path := range modules {
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read condition module: %w", err)
			}
			name := strings.TrimSuffix(filepath.Base(path), ".rego")
			if err := conds.Register(name, string(src)); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			a.tel.Logger.WithField("condition", name).Debug("Loaded condition module")
		}
	}

	return workflow.NewEngine(a.handlers, a.tel.Logger,
		workflow.WithConditions(conds),
		workflow.WithMetrics(a.tel.Metrics),
		workflow.WithTracer(a.tel.Tracer),
	), nil
}

// newToolset builds the Starlark toolset, loading action scripts from the
// configured actions directory. Each *.star file registers an action named
// after the file.
func (a *app) newToolset() (*workflow.StarlarkToolset, error) {
	toolset := workflow.NewStarlarkToolset(a.cfg.Workflow.ScriptTimeout)
	if a.cfg.Workflow.ActionsDir == "" {
		return toolset, nil
	}

	scripts, err := filepath.Glob(filepath.Join(a.cfg.Workflow.ActionsDir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan actions directory: %w", err)
	}
	for _, path := range scripts {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read action script: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".star")
		if err := toolset.RegisterAction(name, string(src)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		a.tel.Logger.WithField("action", name).Debug("Loaded action script")
	}
	return toolset, nil
}

// audit appends an audit entry, logging rather than failing on error: the
// mutation itself already succeeded.
func (a *app) audit(ctx context.Context, entry *stores.AuditEntry) {
	if a.store == nil {
		return
	}
	if err := a.store.AppendAudit(ctx, entry); err != nil {
		a.tel.Logger.WithError(err).WithField("action", entry.Action).Warn("Failed to append audit entry")
	}
}

// printResult renders a command result as JSON or hands it to the text
// renderer.
func printResult(v any, text func()) error {
	if jsonOutput {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	text()
	return nil
}

// parseTypedProperties converts key=value pairs into property values typed
// against the class schema. Unknown properties are passed through as strings
// so the store reports them with its own error.
func parseTypedProperties(class *ontology.ClassDefinition, pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("property %q is not in key=value form", pair)
		}

		def, declared := class.Property(key)
		if !declared {
			props[key] = raw
			continue
		}

		switch def.Type {
		case ontology.TypeInteger:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("property %q: %q is not an integer", key, raw)
			}
			props[key] = n
		case ontology.TypeFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("property %q: %q is not a number", key, raw)
			}
			props[key] = f
		case ontology.TypeBoolean:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("property %q: %q is not a boolean", key, raw)
			}
			props[key] = b
		default:
			props[key] = raw
		}
	}
	return props, nil
}
