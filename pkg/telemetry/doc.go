// Package telemetry provides observability instrumentation for incus-composer.
//
// The telemetry package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified system
// for monitoring and debugging validation pipelines.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "incus-composer"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("engine")
//	logger = logger.WithDocument("incus-compose.yaml").WithContainer("web")
//	logger.Info("Resolving effective configuration")
//	logger.WithError(err).Error("Resolution failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// Components that take a plain zerolog.Logger can be fed via Zerolog:
//
//	eng := policy.NewEngine(tel.Logger.Zerolog())
//
// # Distributed Tracing
//
// Each pipeline stage runs under its own span:
//
//	ctx, span := tel.Tracer.StartParseSpan(ctx, "incus-compose.yaml")
//	defer span.End()
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Stage span names: compose.parse, engine.validate, engine.resolve,
// render.script, lockfile.generate. The whole run nests under
// validation.run via WithValidationContext.
//
// Supported exporters: OTLP (production), Stdout (development), None (default)
//
// # Metrics
//
// Prometheus metrics track validation behavior:
//
//	tel.Metrics.RecordValidation("invalid", duration)
//	tel.Metrics.RecordViolation("unresolved_reference")
//	tel.Metrics.RecordPolicyViolation("container-naming", "error")
//	tel.Metrics.RecordWatchReload()
//
// Key metrics exposed:
//
//   - incus_composer_documents_validated_total{outcome}
//   - incus_composer_validation_duration_seconds{outcome}
//   - incus_composer_violations_total{kind}
//   - incus_composer_policy_violations_total{policy,severity}
//   - incus_composer_watch_reloads_total
//   - incus_composer_containers_resolved
//
// Metrics are exposed via HTTP at /metrics when a listen address is
// configured; the endpoint stays off otherwise.
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	// Publish events
//	tel.Events.PublishDocumentParsed("incus-compose.yaml", 5)
//	tel.Events.PublishViolationFound("incus-compose.yaml", "web", "unresolved_reference", "unknown profile")
//	tel.Events.PublishPlanComputed("incus-compose.yaml", 5, 3)
//
//	// Subscribe to events
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event types: document.parsed, validation.completed, violation.found,
// plan.computed, lockfile.written, watch.reloaded.
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID, FilterByContainer
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	// Instrument an operation
//	ic := telemetry.StartOperation(ctx, "lockfile.diff",
//	    attribute.String("lockfile.path", path))
//	defer ic.End(err)
//
//	ic.Logger.Info("Comparing lockfiles")
//
//	// Validation run context
//	ctx = telemetry.WithValidationContext(ctx, runID, document)
//	defer telemetry.EndValidationContext(ctx, runID, document, outcome, violations, err)
//
//	// One-off stage
//	err := telemetry.RecordStage(ctx, "render.script", func() error {
//	    return render.WriteScript(model, path, opts)
//	})
//
// # Configuration
//
// The package provides pre-configured setups for different environments:
//
//	// Development (verbose logging, stdout traces, full sampling)
//	cfg := telemetry.DevelopmentConfig()
//
//	// Production (JSON logs, OTLP traces, 10% sampling)
//	cfg := telemetry.ProductionConfig()
//
//	// Custom configuration
//	cfg := &telemetry.Config{
//	    ServiceName:    "incus-composer",
//	    ServiceVersion: "1.0.0",
//	    Environment:    "staging",
//	    Logging: telemetry.LoggingConfig{
//	        Level:  "info",
//	        Format: "json",
//	    },
//	    Tracing: telemetry.TracingConfig{
//	        Enabled:      true,
//	        Exporter:     "otlp",
//	        Endpoint:     "otel-collector:4317",
//	        SamplingRate: 0.1,
//	    },
//	}
//
// # Performance Considerations
//
// The telemetry system is designed for minimal overhead:
//
//   - Structured logging uses zerolog's zero-allocation approach
//   - Tracing uses sampling to reduce data volume in production
//   - Events are buffered and batched to reduce I/O
//   - All operations are non-blocking when possible
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
//
// This ensures all buffered events are published and all pending traces
// are exported.
package telemetry
