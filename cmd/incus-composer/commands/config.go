package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/incus-composer/incus-composer/pkg/engine"
)

func newConfigCommand() *cobra.Command {
	var (
		containerName string
		jsonOut       bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective container configuration",
		Long: `Validate the document and print container configuration after profile
application: referenced profiles applied left to right, the container's
own values on top. Devices override whole per name and never merge
field-wise.`,
		Example: `  # Effective configuration of every container
  incus-composer config

  # One container
  incus-composer config --container web

  # Machine-readable output
  incus-composer config --container web --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := tel.WithContext(cmd.Context())

			model, _, err := requireModel(ctx, time.Now())
			if err != nil {
				return err
			}

			if containerName != "" {
				eff, err := engine.MergeProfiles(model.Doc, containerName)
				if err != nil {
					return err
				}
				return printEffective(map[string]engine.EffectiveConfig{containerName: eff}, jsonOut)
			}
			return printEffective(model.Effective, jsonOut)
		},
	}

	cmd.Flags().StringVar(&containerName, "container", "", "limit output to one container")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")

	return cmd
}

func printEffective(effective map[string]engine.EffectiveConfig, jsonOut bool) error {
	if jsonOut {
		return printJSON(effective)
	}
	data, err := yaml.Marshal(effective)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
