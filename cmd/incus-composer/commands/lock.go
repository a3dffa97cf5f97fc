package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/incus-composer/incus-composer/pkg/lockfile"
	"github.com/incus-composer/incus-composer/pkg/stores"
	"github.com/incus-composer/incus-composer/pkg/telemetry"
)

func newLockCommand() *cobra.Command {
	var lockfilePath string

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Generate or refresh the lockfile",
		Long: `Validate the document and pin generated instance identity in a lockfile.

Each container gets a stable UUID and generated MAC addresses for nic
devices without an explicit hwaddr. An existing lockfile is merged:
containers keep their pinned values, new containers get fresh ones, and
containers no longer in the document drop out.`,
		Example: `  # Write the lockfile next to the document
  incus-composer lock

  # Write to an explicit path
  incus-composer lock --lockfile pins.lock`,
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			ctx := tel.WithContext(cmd.Context())

			model, source, err := requireModel(ctx, started)
			if err != nil {
				return err
			}

			path := lockfilePath
			if path == "" {
				path = lockfile.DefaultPath(documentPath)
			}

			var fresh *lockfile.Lockfile
			err = telemetry.RecordStage(ctx, "lockfile.generate", func() error {
				var gerr error
				fresh, gerr = lockfile.Generate(model, source, cliVersion)
				return gerr
			})
			if err != nil {
				journalRun(ctx, source, stores.OutcomeError, nil, started)
				return fmt.Errorf("failed to generate lockfile: %w", err)
			}

			var old *lockfile.Lockfile
			if _, serr := os.Stat(path); serr == nil {
				old, err = lockfile.Load(path)
				if err != nil {
					return fmt.Errorf("failed to load existing lockfile: %w", err)
				}
			}

			merged := lockfile.Merge(old, fresh)
			kept, added, removed := lockfile.Diff(old, merged)

			if err := merged.Save(path); err != nil {
				journalRun(ctx, source, stores.OutcomeError, nil, started)
				return err
			}

			addresses := 0
			for _, inst := range merged.Instances {
				addresses += len(inst.Hwaddrs)
			}
			tel.Events.PublishLockfileWritten(documentPath, path, addresses)
			journalRun(ctx, source, stores.OutcomeValid, nil, started)

			fmt.Printf("✓ wrote %s\n", path)
			fmt.Printf("  kept:    %d\n", len(kept))
			fmt.Printf("  new:     %d\n", len(added))
			fmt.Printf("  dropped: %d\n", len(removed))
			return nil
		},
	}

	cmd.Flags().StringVar(&lockfilePath, "lockfile", "", "lockfile path (default <document>.lock)")

	return cmd
}
