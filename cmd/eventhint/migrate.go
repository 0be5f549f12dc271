package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Csabesz1130/eventhint/pkg/db"
)

// newMigrateCmd applies every .sql file under --dir (spec.md §3's schema),
// grounded on the teacher's pkg/db/migrations.go runner.
func newMigrateCmd() *cobra.Command {
	var migrationsDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()

			ctx, cancel := signalContext()
			defer cancel()

			pool, err := db.ConnectWithRetry(ctx, &db.Config{RawURL: cfg.DatabaseURL}, 5, 0)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			result, err := db.RunMigrations(ctx, pool, migrationsDir)
			if err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			fmt.Printf("applied %d migration(s), skipped %d\n", len(result.Applied), len(result.Skipped))
			for _, name := range result.Applied {
				fmt.Printf("  applied: %s\n", name)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d migration(s) failed: %v", len(result.Errors), result.Errors[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "directory containing .sql migration files")
	return cmd
}
