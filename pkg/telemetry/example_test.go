package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/incus-composer/incus-composer/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	// Create configuration
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "incus-composer"
	cfg.ServiceVersion = "1.0.0"

	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Add telemetry to context
	ctx := tel.WithContext(context.Background())

	// Use telemetry
	logger := telemetry.FromContext(ctx)
	logger.Info("Application started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("engine")

	// Add context fields
	logger = logger.WithDocument("incus-compose.yaml").WithContainer("web")

	// Log at different levels
	logger.Debug("Resolving effective configuration")
	logger.Info("Start plan computed")
	logger.Warn("Container has no memory limit")

	// Log with error
	err := fmt.Errorf("unknown profile: base")
	logger.WithError(err).Error("Validation failed")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Exporter = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a span for the parse stage
	ctx, span := tel.Tracer.StartParseSpan(ctx, "incus-compose.yaml")
	defer span.End()

	// Add attributes
	span.SetAttributes(
		telemetry.AttrContainerCount.Int(5),
	)

	// Add event
	span.AddEvent("decode.complete")

	// Nested span for validation
	_, childSpan := tel.Tracer.StartValidateSpan(ctx, "incus-compose.yaml", 5)
	defer childSpan.End()

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	// Record success
	telemetry.RecordSuccess(childSpan)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Record a validation run
	start := time.Now()
	time.Sleep(10 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordValidation("invalid", duration)

	// Record the violations it found
	tel.Metrics.RecordViolation("unresolved_reference")
	tel.Metrics.RecordViolation("dependency_cycle")
	tel.Metrics.RecordPolicyViolation("container-naming", "error")

	// Record resolved model size
	tel.Metrics.SetContainersResolved(5)

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false // Synchronous for example

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe to events
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil) // No filter, receive all events

	// Publish events
	tel.Events.PublishDocumentParsed("incus-compose.yaml", 5)
	tel.Events.PublishViolationFound("incus-compose.yaml", "web", "unresolved_reference", "unknown profile: base")
	tel.Events.PublishPlanComputed("incus-compose.yaml", 5, 3)

	// Output varies due to async nature, no output specified
}

// Example_validationInstrumentation demonstrates instrumenting a complete run.
func Example_validationInstrumentation() {
	cfg := telemetry.DefaultConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start validation context
	runID := "run-123"
	document := "incus-compose.yaml"
	ctx = telemetry.WithValidationContext(ctx, runID, document)

	// Run the pipeline (simulated)
	runPipeline(ctx)

	// End validation context
	telemetry.EndValidationContext(ctx, runID, document, "valid", 0, nil)

	fmt.Println("Validation instrumentation complete")
	// Output: Validation instrumentation complete
}

func runPipeline(ctx context.Context) {
	// Get logger from context
	logger := telemetry.FromContext(ctx)
	logger.Info("Parsing document")

	// Run stages under their own spans
	_ = telemetry.RecordStage(ctx, "compose.parse", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	_ = telemetry.RecordStage(ctx, "engine.validate", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DefaultConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start instrumented operation
	ic := telemetry.StartOperation(ctx, "lockfile.diff",
		attribute.String("lockfile.path", "incus-compose.lock.yaml"),
	)
	defer ic.End(nil)

	// Use the instrumented context
	ic.Logger.Info("Comparing lockfiles")

	// Simulate diff
	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("Lockfile comparison complete")

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe with level filter (only warnings and errors)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	// Subscribe with type filter (only violations)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Violation: %s\n", event.Message)
	}, telemetry.FilterByType("violation.found"))

	// Publish various events
	tel.Events.PublishDocumentParsed("incus-compose.yaml", 5)                                  // Info - filtered by level filter
	tel.Events.PublishViolationFound("incus-compose.yaml", "web", "self_dependency", "web")    // Warning - passes level filter
	tel.Events.PublishValidationCompleted("incus-compose.yaml", "invalid", 1, 5*time.Millisecond) // Warning - passes level filter

	// Output varies, no output specified
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	// Customize for your environment
	cfg.ServiceName = "incus-composer"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	// Configure OTLP exporter
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1 // 10% sampling
	cfg.Tracing.Insecure = false   // Use TLS in production

	// Configure metrics
	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddress = ":9090"
	cfg.Metrics.Namespace = "incus_composer"

	// Configure events
	cfg.Events.BufferSize = 10000
	cfg.Events.FlushInterval = 5 * time.Second

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Production configuration validated")
	// Output: Production configuration validated
}

// Example_errorRecording demonstrates error recording on spans, metrics, and logs.
func Example_errorRecording() {
	cfg := telemetry.DefaultConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a span
	ctx, span := tel.Tracer.StartParseSpan(ctx, "broken.yaml")
	defer span.End()

	// Simulate an error
	err := fmt.Errorf("yaml: line 12: mapping values are not allowed in this context")

	if err != nil {
		// Record error on span
		telemetry.RecordError(span, err)

		// Record error outcome
		tel.Metrics.RecordValidation("error", time.Millisecond)

		// Log error
		logger := telemetry.FromContext(ctx)
		logger.WithError(err).Error("Parse failed")
	}

	fmt.Println("Error recording complete")
	// Output: Error recording complete
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DefaultConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific loggers
	composeLogger := tel.Logger.NewComponentLogger("compose")
	engineLogger := tel.Logger.NewComponentLogger("engine")
	policyLogger := tel.Logger.NewComponentLogger("policy-engine")

	composeLogger.Info("Document parsed")
	engineLogger.Info("Model resolved")
	policyLogger.Info("Policies evaluated")

	fmt.Println("Multi-component logging complete")
	// Output: Multi-component logging complete
}
