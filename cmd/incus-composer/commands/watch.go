package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/incus-composer/incus-composer/pkg/policy"
	"github.com/incus-composer/incus-composer/pkg/stores"
	"github.com/incus-composer/incus-composer/pkg/telemetry"
)

// watchDelay debounces bursts of file system events into one revalidation.
const watchDelay = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	var (
		policyPaths []string
		showPlan    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Revalidate on every document change",
		Long: `Watch the compose document and revalidate whenever it changes.

Runs until interrupted. With --policy the policy set is evaluated on
every run and hot-reloaded when the policy files change. With
--metrics-addr a Prometheus endpoint reports validation outcomes,
violation counts and reload totals.`,
		Example: `  # Watch the default document
  incus-composer watch

  # Watch with policies and hot reload
  incus-composer watch --policy ./policies

  # Expose Prometheus metrics while watching
  incus-composer watch --metrics-addr :9090

  # Log the start plan after each valid run
  incus-composer watch --plan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := tel.WithContext(cmd.Context())
			logger := tel.Logger.NewComponentLogger("watch").WithDocument(documentPath)

			if metricsAddr != "" {
				if err := tel.StartMetricsServer(); err != nil {
					return fmt.Errorf("failed to start metrics server: %w", err)
				}
				logger.WithField("addr", metricsAddr).Info("Serving Prometheus metrics")
			}

			// Console reporter for pipeline events
			tel.Events.Subscribe(func(event telemetry.Event) {
				entry := tel.Logger.WithField("event", event.Type)
				if event.Container != "" {
					entry = entry.WithContainer(event.Container)
				}
				switch event.Level {
				case telemetry.EventLevelWarning:
					entry.Warn(event.Message)
				case telemetry.EventLevelError:
					entry.Error(event.Message)
				default:
					entry.Debug(event.Message)
				}
			}, nil)

			runs := make(chan string, 1)
			trigger := func(reason string) {
				select {
				case runs <- reason:
				default:
				}
			}

			var polEngine *policy.Engine
			if len(policyPaths) > 0 {
				var err error
				polEngine, err = policy.NewEngine(tel.Logger.Zerolog())
				if err != nil {
					return fmt.Errorf("failed to create policy engine: %w", err)
				}
				if err := polEngine.LoadPolicies(ctx, policyPaths); err != nil {
					return fmt.Errorf("failed to load policies: %w", err)
				}

				loader := policy.NewLoader(tel.Logger.Zerolog())
				err = loader.Watch(ctx, policyPaths, func() error {
					if err := polEngine.ReloadPolicies(ctx, policyPaths); err != nil {
						return err
					}
					trigger("policy change")
					return nil
				})
				if err != nil {
					return fmt.Errorf("failed to watch policies: %w", err)
				}
				defer loader.StopWatching()
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			// Watch the directory, not the file: editors replace files on
			// save, which drops a direct file watch.
			dir := filepath.Dir(documentPath)
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}

			revalidate := func(reason string) {
				started := time.Now()
				run := stores.NewRun(documentPath, "")
				runCtx := telemetry.WithValidationContext(ctx, run.ID, documentPath)

				vo := runValidation(runCtx, polEngine)
				run.SourceHash = sourceHash(vo.Source)
				finishRun(run, vo.Outcome, vo.Entries, started)
				recordRun(runCtx, run)
				telemetry.EndValidationContext(runCtx, run.ID, documentPath, string(vo.Outcome), len(vo.Entries), vo.Err)

				switch {
				case vo.Err != nil:
					logger.WithError(vo.Err).Error("Document failed to validate")
				case vo.Outcome != stores.OutcomeValid:
					logger.WithField("violations", len(vo.Entries)).Warn("Document is invalid")
					for _, e := range vo.Entries {
						logger.Warnf("violation: %s", e.Message)
					}
				default:
					logger.WithFields(map[string]interface{}{
						"containers": len(vo.Model.Doc.Containers),
						"levels":     vo.Model.Plan.Depth(),
						"trigger":    reason,
					}).Info("Document is valid")
					if showPlan {
						for i, level := range vo.Model.Plan.Levels {
							logger.Infof("level %d: %s", i, strings.Join(level, ", "))
						}
					}
				}
			}

			revalidate("startup")
			logger.Info("Watching for changes")

			var reloadTimer *time.Timer
			for {
				select {
				case <-ctx.Done():
					if reloadTimer != nil {
						reloadTimer.Stop()
					}
					logger.Info("Watch stopped")
					return nil

				case reason := <-runs:
					tel.Metrics.RecordWatchReload()
					tel.Events.PublishWatchReloaded(documentPath, reason)
					revalidate(reason)

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
						continue
					}
					if filepath.Clean(event.Name) != filepath.Clean(documentPath) {
						continue
					}
					logger.WithField("op", event.Op.String()).Debug("Document changed")
					if reloadTimer != nil {
						reloadTimer.Stop()
					}
					reloadTimer = time.AfterFunc(watchDelay, func() {
						trigger("document change")
					})

				case werr, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					logger.WithError(werr).Error("Watcher error")
				}
			}
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "policy file or directory (repeatable)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for Prometheus metrics")
	cmd.Flags().BoolVar(&showPlan, "plan", false, "log the start plan after each valid run")

	return cmd
}
