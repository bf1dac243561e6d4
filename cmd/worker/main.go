package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"rugsync/internal/config"
	"rugsync/internal/database"
	"rugsync/internal/events"
	"rugsync/internal/logger"
	"rugsync/internal/runtracker"
	"rugsync/internal/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		days   int
		force  bool
		shopID string
	)

	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Sync the rug catalog into every active Shopify store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := worker.Options{Force: force, ShopID: shopID}
			if cmd.Flags().Changed("days") {
				opts.Days = &days
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "look back this many days instead of the computed window")
	cmd.Flags().BoolVar(&force, "force", false, "update products even when the store copy is newer")
	cmd.Flags().StringVar(&shopID, "shop", "", "sync only the shop with this id")
	return cmd
}

func run(ctx context.Context, opts worker.Options) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := logger.NewWithFile(cfg.LogLevel, filepath.Join(cfg.LogDir, "worker.log"))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		return err
	}
	defer db.Close()

	var tracker runtracker.Store = runtracker.NewGormStore(db.DB)
	if cfg.RedisURL != "" {
		redisStore, err := runtracker.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to redis: %v", err)
			return err
		}
		defer redisStore.Close()
		tracker = redisStore
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher: %v", err)
		}
	}()

	w := worker.New(cfg, logger, database.NewShopStore(db.DB), database.NewRunStore(db.DB), tracker, publisher)

	logger.Info("Starting worker...")
	summary, err := w.Run(ctx, opts)
	if err != nil {
		logger.Error("Run failed: %v", err)
		return err
	}
	if summary.Totals.Errors > 0 || summary.Failed() > 0 {
		logger.Warn("Run finished with %d record error(s) and %d failed shop(s)", summary.Totals.Errors, summary.Failed())
	}
	return nil
}
