package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/incus-composer/incus-composer/pkg/stores"
	"github.com/incus-composer/incus-composer/pkg/telemetry"
)

var (
	// Global flags
	documentPath  string
	logLevel      string
	logFormat     string
	quiet         bool
	traceExporter string
	useJournal    bool
	journalPath   string

	// metricsAddr is registered on the watch command but read during
	// telemetry setup, before any RunE executes.
	metricsAddr string

	// cliVersion is stamped into rendered scripts and lockfiles.
	cliVersion string

	// tel is the telemetry stack shared by all commands. Built in the
	// root PersistentPreRunE, shut down after Execute returns.
	tel *telemetry.Telemetry
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	cliVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	defer shutdownTelemetry()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "incus-composer",
		Short: "Incus Composer - Declarative Incus Topology Validator",
		Long: `Incus Composer validates declarative Incus topologies and turns them into
deterministic start plans, lockfiles and dry-run provisioning scripts. It
never talks to an Incus daemon.

Features:
  - Strict YAML, CUE and Starlark document front ends
  - Semantic validation: references, cycles, devices, resource limits
  - Deterministic start plans (dependency levels, boot priority)
  - Lockfile-pinned instance IDs and MAC addresses
  - Dry-run bash script rendering
  - OPA policy evaluation with hot reload
  - Local run journal and watch mode`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupTelemetry()
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&documentPath, "file", "f", "incus-compose.yaml", "compose document path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace-exporter", "none", "trace exporter (none, stdout, otlp)")
	rootCmd.PersistentFlags().BoolVar(&useJournal, "journal", false, "record runs in the local journal")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal-path", stores.DefaultPath(), "run journal database path")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newLockCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}

// setupTelemetry builds the shared telemetry stack from the global flags.
// Logs go to stderr so stdout stays reserved for command output.
func setupTelemetry() error {
	level := logLevel
	if level == "" {
		level = os.Getenv("INCUS_COMPOSER_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	if quiet {
		level = "error"
	}

	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = cliVersion
	cfg.Logging.Level = level
	cfg.Logging.Format = logFormat
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = traceExporter
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = metricsAddr
	}

	var err error
	tel, err = telemetry.NewTelemetry(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return nil
}

func shutdownTelemetry() {
	if tel == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = tel.Shutdown(ctx)
}
