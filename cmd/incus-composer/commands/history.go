package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/incus-composer/incus-composer/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit     int
		docFilter string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs",
		Long: `List recent runs recorded in the local journal, newest first.

Runs are recorded when a command is invoked with --journal. The journal
is bookkeeping only; it never feeds back into validation.`,
		Example: `  # Last 20 runs
  incus-composer history

  # Last 5 runs for one document
  incus-composer history --limit 5 --document topology.yaml

  # Machine-readable output
  incus-composer history --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if _, err := os.Stat(journalPath); err != nil {
				return fmt.Errorf("no run journal at %s (record runs with --journal)", journalPath)
			}

			store, err := stores.NewSQLiteStore(stores.Config{Path: journalPath})
			if err != nil {
				return fmt.Errorf("failed to open run journal: %w", err)
			}
			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("failed to open run journal: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate run journal: %w", err)
			}

			var runs []*stores.Run
			if docFilter != "" {
				runs, err = store.ListRunsByDocument(ctx, docFilter, limit, 0)
			} else {
				runs, err = store.ListRuns(ctx, limit, 0)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tOUTCOME\tVIOLATIONS\tDURATION\tCREATED\tDOCUMENT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					shortID(r.ID), r.Outcome, r.ViolationCount, r.Duration,
					r.CreatedAt.Format("2006-01-02 15:04:05"), r.DocumentPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&docFilter, "document", "", "only list runs for this document path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
