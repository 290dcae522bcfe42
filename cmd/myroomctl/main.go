package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/config"
)

var (
	verbose bool
	logger  *zap.Logger

	// openStores is swapped out in tests.
	openStores = func(ctx context.Context, logger *zap.Logger) (*backend.Stores, error) {
		_ = godotenv.Load(".env.local", ".env")
		cfg, err := config.LoadStore()
		if err != nil {
			return nil, err
		}
		return backend.Open(ctx, cfg, logger)
	}
)

// operator is the identity maintenance commands act as.
var operator = listing.Actor{UserID: "myroomctl", Admin: true}

var rootCmd = &cobra.Command{
	Use:   "myroomctl",
	Short: "Maintenance tool for MyRoom listings",
	Long: `myroomctl inspects and repairs listing data directly in the configured store.

It reads the same environment as the API server (STORE_BACKEND, APP_ID,
FIREBASE_*, MONGO_*) but does not need JWT or HTTP settings.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(reconcileCmd, inspectCmd, moderateCmd, statsCmd, cleanupCmd)
}

// withService opens the stores, builds a service over them and closes the
// stores when fn returns.
func withService(ctx context.Context, fn func(svc *listing.Service, stores *backend.Stores) error) error {
	stores, err := openStores(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()
	svc := listing.NewService(listing.Deps{
		Listings: stores.Listings,
		Reviews:  stores.Reviews,
		Runs:     stores.Runs,
		Stats:    stores.Stats,
		Logger:   logger,
	})
	return fn(svc, stores)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
