package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/incus-composer/incus-composer/pkg/policy"
	"github.com/incus-composer/incus-composer/pkg/stores"
	"github.com/incus-composer/incus-composer/pkg/telemetry"
)

// validateReport is the machine-readable result of a validate run.
type validateReport struct {
	Document   string           `json:"document"`
	Outcome    string           `json:"outcome"`
	Containers int              `json:"containers,omitempty"`
	Levels     int              `json:"levels,omitempty"`
	Violations []violationEntry `json:"violations,omitempty"`
	Policy     *policy.Result   `json:"policy,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var (
		policyPaths []string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the compose document",
		Long: `Validate the compose document and report every problem found.

This command checks:
  - Document structure (strict decoding, schema version)
  - Reference integrity (networks, pools, profiles, depends_on)
  - Dependency graph shape (self-dependencies, cycles)
  - Device definitions per variant
  - CPU and memory resource values
  - Policy compliance (OPA/rego) when --policy is given`,
		Example: `  # Validate the default document
  incus-composer validate

  # Validate a specific document
  incus-composer validate -f topology.yaml

  # Validate with policies from a directory
  incus-composer validate --policy ./policies

  # Machine-readable output
  incus-composer validate --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			ctx := tel.WithContext(cmd.Context())

			run := stores.NewRun(documentPath, "")
			ctx = telemetry.WithValidationContext(ctx, run.ID, documentPath)

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
			}

			vo := runValidation(ctx, polEngine)
			run.SourceHash = sourceHash(vo.Source)
			finishRun(run, vo.Outcome, vo.Entries, started)
			recordRun(ctx, run)
			telemetry.EndValidationContext(ctx, run.ID, documentPath, string(vo.Outcome), len(vo.Entries), vo.Err)

			if jsonOut {
				if err := printJSON(buildReport(vo)); err != nil {
					return err
				}
			} else {
				printValidateReport(vo)
			}

			switch {
			case vo.Err != nil:
				return vo.Err
			case vo.Outcome != stores.OutcomeValid:
				return fmt.Errorf("%s is invalid: %d violation(s)", documentPath, len(vo.Entries))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "policy file or directory (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")

	return cmd
}

func buildReport(vo validationOutcome) validateReport {
	report := validateReport{
		Document:   documentPath,
		Outcome:    string(vo.Outcome),
		Violations: vo.Entries,
		Policy:     vo.Policy,
	}
	if vo.Err != nil {
		report.Error = vo.Err.Error()
	}
	if vo.Model != nil {
		report.Containers = len(vo.Model.Doc.Containers)
		report.Levels = vo.Model.Plan.Depth()
	}
	return report
}

func printValidateReport(vo validationOutcome) {
	if vo.Err != nil {
		fmt.Printf("✗ %s failed to validate\n  %v\n", documentPath, vo.Err)
		return
	}

	semantic := countSemantic(vo.Entries)
	if semantic == 0 {
		fmt.Printf("✓ %s is valid\n", documentPath)
		fmt.Printf("  containers:   %d\n", len(vo.Model.Doc.Containers))
		fmt.Printf("  start levels: %d\n", vo.Model.Plan.Depth())
	} else {
		fmt.Printf("✗ %s is invalid (%d violations)\n", documentPath, semantic)
		for _, e := range vo.Entries {
			if e.Kind != "policy" {
				fmt.Printf("  - %s\n", e.Message)
			}
		}
	}

	if vo.Policy == nil {
		return
	}
	if len(vo.Policy.Violations) == 0 {
		fmt.Printf("✓ policies passed (%d evaluated)\n", len(vo.Policy.EvaluatedPolicies))
	} else {
		mark := "✓"
		if !vo.Policy.Allowed {
			mark = "✗"
		}
		fmt.Printf("%s policy findings (%d):\n", mark, len(vo.Policy.Violations))
		for _, v := range vo.Policy.Violations {
			if v.Container != "" {
				fmt.Printf("  - [%s] %s: %s: %s\n", v.Severity, v.Policy, v.Container, v.Message)
			} else {
				fmt.Printf("  - [%s] %s: %s\n", v.Severity, v.Policy, v.Message)
			}
		}
	}
	for _, w := range vo.Policy.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
}

func countSemantic(entries []violationEntry) int {
	n := 0
	for _, e := range entries {
		if e.Kind != "policy" {
			n++
		}
	}
	return n
}
