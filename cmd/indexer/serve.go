package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantstream/internal/api"
	"grantstream/internal/cache"
	"grantstream/internal/query"
	"grantstream/internal/storage/postgres"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API",
		RunE:  runServe,
	}

	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("api-addr", ":8080", "listen address")
	cmd.Flags().Duration("analytics-cache-ttl", 30*time.Second, "analytics cache TTL")
	cmd.Flags().Int("analytics-cache-size", 16, "analytics cache capacity")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PostgresDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}

	reg, err := buildRegistry(cfg.Chains)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	service := query.New(store, reg, logger)
	analyticsCache := cache.New(cfg.AnalyticsCacheTTL, cfg.AnalyticsCacheSize)
	server := api.NewServer(cfg.APIAddr, service, analyticsCache, store, logger)

	logger.Info("api start", zap.String("addr", cfg.APIAddr))
	return server.Run(ctx)
}
