package admin

import (
	"fmt"

	"github.com/sourcingworks/rfqsmith/internal/config"
	"github.com/sourcingworks/rfqsmith/internal/database"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			sourceURL, _ := cmd.Flags().GetString("migrations")
			if err := database.Migrate(cfg.DatabaseURL, sourceURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("migrations", "file://migrations", "Migration source URL")

	return cmd
}
