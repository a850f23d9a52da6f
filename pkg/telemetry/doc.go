// Package telemetry provides observability instrumentation for the knowledge
// base and workflow engine.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and an in-process domain event
// publisher behind one Telemetry handle.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-scoped child loggers with domain field
// helpers:
//
//	logger := tel.Logger.NewComponentLogger("ontology")
//	logger = logger.WithClass("Client").WithInstanceID("client_a1b2c3d4")
//	logger.Info("instance created")
//	logger.WithError(err).Error("validation failed")
//
// Log levels: trace, debug, info, warn, error, fatal.
//
// # Tracing
//
// Workflow executions get a span per run:
//
//	ctx, span := tel.Tracer.StartExecution(ctx, handler, executionID)
//	defer span.End(outcome.Success, outcome.Err)
//
// # Metrics
//
// Counters and histograms cover schema definitions, instance writes,
// validation failures, workflow executions, and step durations. The /metrics
// endpoint is served by StartMetricsServer.
//
// # Events
//
// Domain events (class defined, instance created, execution finished) fan out
// to subscribers, synchronously or through a buffered goroutine:
//
//	tel.Events.Subscribe(func(e telemetry.Event) { ... }, nil)
//	tel.Events.Publish(telemetry.Event{Type: telemetry.EventTypeClassDefined, Class: "Client"})
package telemetry
