package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "userctl",
	Short: "Administrative tasks for the userhub store",
	Long: `Administrative tasks for the userhub store. Usage:

	userctl migrate up
	userctl seed
	userctl create-admin --username root --email root@example.com --password s3cret!
`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// openStore loads the environment config and connects to the configured
// driver. The caller closes the store.
func openStore(ctx context.Context) (config.Config, *store.Store, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	log := observability.NewLogger(cfg.Env)

	st, err := store.Open(ctx, cfg.DB, nil)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	return cfg, st, log, nil
}
