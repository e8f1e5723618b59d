package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"grantstream/internal/chain"
	"grantstream/internal/indexer"
	"grantstream/internal/reduce"
	"grantstream/internal/storage/postgres"
	"grantstream/internal/stream"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run the per-chain indexing loops",
		RunE:  runIndex,
	}

	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per fetch batch")
	cmd.Flags().Duration("poll-interval", 12*time.Second, "delay between polling cycles")
	cmd.Flags().Duration("rpc-timeout", 15*time.Second, "per-call RPC timeout")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runIndex(cmd *cobra.Command, _ []string) error {
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

	decoder, err := stream.NewDecoder()
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	discovery := indexer.NewDiscovery(store, reg, logger)
	reducer := reduce.New(store, logger)

	logger.Info("indexer start",
		zap.Int("chains", len(cfg.Chains)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	group, ctx := errgroup.WithContext(ctx)
	for _, chainCfg := range reg.Chains() {
		chainCfg := chainCfg
		group.Go(func() error {
			client, err := chain.NewClient(ctx, chainCfg.RPCURL, cfg.RPCTimeout)
			if err != nil {
				return fmt.Errorf("chain %d: connect rpc: %w", chainCfg.ChainID, err)
			}
			defer client.Close()

			runner := indexer.NewRunner(indexer.RunConfig{
				BatchSize:    cfg.BatchSize,
				PollInterval: cfg.PollInterval,
				MaxRetries:   cfg.MaxRetries,
				RetryBackoff: cfg.RetryBackoff,
			}, chainCfg, client, client, decoder, reg, discovery, reducer, store, logger)

			return runner.Run(ctx)
		})
	}

	return ignoreCanceled(group.Wait())
}

// ignoreCanceled filters the error a clean shutdown propagates out of the
// chain loops, which may arrive wrapped.
func ignoreCanceled(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
