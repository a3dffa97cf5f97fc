package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/incus-composer/incus-composer/pkg/lockfile"
	"github.com/incus-composer/incus-composer/pkg/render"
	"github.com/incus-composer/incus-composer/pkg/stores"
	"github.com/incus-composer/incus-composer/pkg/telemetry"
)

func newRenderCommand() *cobra.Command {
	var (
		outputPath   string
		lockfilePath string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the dry-run provisioning script",
		Long: `Validate the document and render it as an executable bash script of
incus commands: storage pools, networks and profiles first, then
instances in start-plan order.

The script documents intent; incus-composer never talks to Incus itself.
When a lockfile exists its pinned MAC addresses are injected, so the
script stays identical across regenerations.`,
		Example: `  # Print the script to stdout
  incus-composer render

  # Write the script to a file
  incus-composer render -o provision.sh

  # Use pinned addresses from a specific lockfile
  incus-composer render --lockfile topology.yaml.lock`,
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			ctx := tel.WithContext(cmd.Context())

			model, source, err := requireModel(ctx, started)
			if err != nil {
				return err
			}

			lock, err := loadLockfileFor(lockfilePath)
			if err != nil {
				return err
			}

			opts := render.Options{Lockfile: lock, Version: cliVersion}
			err = telemetry.RecordStage(ctx, "render.script", func() error {
				if outputPath == "" {
					fmt.Print(render.Script(model, opts))
					return nil
				}
				return render.WriteScript(outputPath, model, opts)
			})
			if err != nil {
				journalRun(ctx, source, stores.OutcomeError, nil, started)
				return err
			}

			journalRun(ctx, source, stores.OutcomeValid, nil, started)
			if outputPath != "" {
				fmt.Printf("✓ wrote %s\n", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "script output path (default stdout)")
	cmd.Flags().StringVar(&lockfilePath, "lockfile", "", "lockfile to take pinned addresses from")

	return cmd
}

// loadLockfileFor loads the lockfile for the current document. An explicit
// path must exist; the default path is used only when present.
func loadLockfileFor(explicit string) (*lockfile.Lockfile, error) {
	path := explicit
	if path == "" {
		path = lockfile.DefaultPath(documentPath)
	}
	if _, err := os.Stat(path); err != nil {
		if explicit != "" {
			return nil, fmt.Errorf("lockfile not found: %s", explicit)
		}
		return nil, nil
	}
	lock, err := lockfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load lockfile: %w", err)
	}
	tel.Logger.WithDocument(documentPath).WithField("lockfile", path).Debug("Using pinned addresses from lockfile")
	return lock, nil
}
