package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo accounts into an empty users table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, log, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(db.Up); err != nil {
			return err
		}

		n, err := db.SeedDemoUsers(cmd.Context(), st.Users, security.NewHasher(cfg.BcryptCost), time.Now().UTC(), log)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d users\n", n)
		return nil
	},
}

var adminFlags struct {
	username string
	email    string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an Admin account unless the username or email is taken",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminFlags.username == "" || adminFlags.email == "" || adminFlags.password == "" {
			return errors.New("--username, --email and --password are required")
		}
		if len(adminFlags.password) < 6 {
			return errors.New("password must be at least 6 characters")
		}
		if len(adminFlags.password) > security.MaxPasswordBytes {
			return fmt.Errorf("password must be at most %d bytes", security.MaxPasswordBytes)
		}

		cfg, st, _, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(db.Up); err != nil {
			return err
		}

		created, err := db.EnsureAdminUser(cmd.Context(), st.Users, security.NewHasher(cfg.BcryptCost), db.AdminAccount{
			Username: adminFlags.username,
			Email:    adminFlags.email,
			Password: adminFlags.password,
		})
		if err != nil {
			return fmt.Errorf("create admin failed: %w", err)
		}

		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", adminFlags.username)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "admin %q already present, nothing to do\n", adminFlags.username)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, createAdminCmd)

	createAdminCmd.Flags().StringVar(&adminFlags.username, "username", "", "admin username")
	createAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "admin password (min 6 characters)")
}
