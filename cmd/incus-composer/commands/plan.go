package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/incus-composer/incus-composer/pkg/stores"
)

func newPlanCommand() *cobra.Command {
	var (
		jsonOut bool
		dotFile string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the deterministic start plan",
		Long: `Validate the document and print its start plan.

The plan orders containers so that dependencies start before dependents.
Containers with no ordering relation are ranked by boot priority (higher
first), then by name, so the plan is identical on every run. Levels group
containers that may start concurrently.`,
		Example: `  # Print the start plan
  incus-composer plan

  # Machine-readable plan
  incus-composer plan --json

  # Write the dependency graph in Graphviz DOT format
  incus-composer plan --dot topology.dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			ctx := tel.WithContext(cmd.Context())

			model, source, err := requireModel(ctx, started)
			if err != nil {
				return err
			}

			if dotFile != "" {
				if err := os.WriteFile(dotFile, []byte(model.DOT()), 0644); err != nil {
					return fmt.Errorf("failed to write DOT graph: %w", err)
				}
			}

			journalRun(ctx, source, stores.OutcomeValid, nil, started)

			if jsonOut {
				return printJSON(model.Plan)
			}

			fmt.Printf("Start plan for %s (%d containers, %d levels)\n\n", documentPath, len(model.Plan.Order), model.Plan.Depth())
			for i, level := range model.Plan.Levels {
				fmt.Printf("  level %d: %s\n", i, strings.Join(level, ", "))
			}
			fmt.Printf("\nStart order: %s\n", strings.Join(model.Plan.Order, ", "))
			if dotFile != "" {
				fmt.Printf("\n✓ wrote dependency graph to %s\n", dotFile)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	cmd.Flags().StringVar(&dotFile, "dot", "", "write the dependency graph to a DOT file")

	return cmd
}
