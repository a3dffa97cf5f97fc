package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// starterDocument is a small two-container topology exercising the most
// common document features. It validates cleanly as written.
const starterDocument = `# incus-compose starter topology.
# Validate with: incus-composer validate

version: "1.0"

containers:
  web:
    image: ubuntu/22.04
    # instance_type defaults to container; use virtual-machine for VMs.
    networks:
      - frontend
    # db starts before web.
    depends_on:
      - db
    cpu:
      limit: "2"
    memory:
      limit: 1GB
    environment:
      TZ: UTC
    devices:
      http:
        type: proxy
        listen: tcp:0.0.0.0:8080
        connect: tcp:127.0.0.1:80
    cloud_init:
      user_data: |
        #cloud-config
        packages:
          - nginx

  db:
    image: ubuntu/22.04
    # Higher boot priority starts first among unordered containers.
    boot_priority: 10
    memory:
      limit: 2GB
    volumes:
      - source: db-data
        target: /var/lib/postgresql
        pool: default

networks:
  frontend:
    type: bridge
    config:
      ipv4.address: 10.10.10.1/24
      ipv4.nat: "true"

storage:
  default:
    driver: dir
`

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter compose document",
		Long: `Write a commented starter document to the path given by --file.

Refuses to overwrite an existing document.`,
		Example: `  # Create incus-compose.yaml in the current directory
  incus-composer init

  # Create under a different name
  incus-composer init -f topology.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(documentPath); err == nil {
				return fmt.Errorf("refusing to overwrite existing %s", documentPath)
			}

			if err := os.WriteFile(documentPath, []byte(starterDocument), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", documentPath, err)
			}

			fmt.Printf("✓ Created %s\n\n", documentPath)
			fmt.Printf("Next steps:\n")
			fmt.Printf("  1. Validate the topology:\n")
			fmt.Printf("     incus-composer validate -f %s\n\n", documentPath)
			fmt.Printf("  2. Inspect the start plan:\n")
			fmt.Printf("     incus-composer plan -f %s\n\n", documentPath)
			fmt.Printf("  3. Render the provisioning script:\n")
			fmt.Printf("     incus-composer render -f %s -o provision.sh\n\n", documentPath)

			return nil
		},
	}

	return cmd
}
