package main

import (
	"fmt"

	"github.com/geocoder89/userhub/internal/db"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

func migrateRunE(dir db.Direction) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_, st, log, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(dir); err != nil {
			return fmt.Errorf("migrate %s failed: %w", dir, err)
		}

		log.Info("migrations applied", "direction", dir.String(), "driver", st.Driver)
		return nil
	}
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE:  migrateRunE(db.Up),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations (drops the users table)",
	RunE:  migrateRunE(db.Down),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
