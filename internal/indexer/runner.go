package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"grantstream/internal/model"
	"grantstream/internal/reduce"
	"grantstream/internal/registry"
	"grantstream/internal/storage"
	"grantstream/internal/stream"
)

// LogSource is the chain access the runner needs. chain.Client satisfies it;
// tests substitute a fake.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for one chain loop.
type RunConfig struct {
	BatchSize    uint64
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner is the fetch-and-reduce loop for a single chain. It polls for new
// blocks, fetches logs for the chain's watch set in batches, decodes them in
// log order, and routes each event to discovery or the reducer. The watermark
// advances only after a whole range has been reduced and stored, so a crash
// mid-range replays the range and the idempotent reducers absorb it.
type Runner struct {
	cfg       RunConfig
	chain     registry.Chain
	source    LogSource
	caller    stream.ContractCaller
	decoder   *stream.Decoder
	registry  *registry.Registry
	discovery *Discovery
	reducer   *reduce.Reducer
	store     storage.Store
	logger    *zap.Logger
}

// NewRunner builds a Runner for one chain.
func NewRunner(
	cfg RunConfig,
	chain registry.Chain,
	source LogSource,
	caller stream.ContractCaller,
	decoder *stream.Decoder,
	reg *registry.Registry,
	discovery *Discovery,
	reducer *reduce.Reducer,
	store storage.Store,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		chain:     chain,
		source:    source,
		caller:    caller,
		decoder:   decoder,
		registry:  reg,
		discovery: discovery,
		reducer:   reducer,
		store:     store,
		logger:    logger.With(zap.Uint64("chain_id", chain.ChainID), zap.String("chain", chain.Name)),
	}
}

// Run executes the polling loop until the context is cancelled. Transient
// failures are logged and retried on the next cycle; the loop only returns
// on cancellation or invalid configuration.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than zero")
	}

	seeded, err := r.discovery.Seed(ctx, r.chain.ChainID)
	if err != nil {
		return fmt.Errorf("seed watch set: %w", err)
	}
	r.logger.Info("chain loop started",
		zap.Int("known_instances", seeded),
		zap.Uint64("start_block", r.chain.StartBlock),
	)

	for {
		if err := r.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("sync cycle failed", zap.Error(err))
		}

		timer := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runOnce syncs from the watermark to the chain head. Called by Run each
// polling cycle; exported behavior is tested through it.
func (r *Runner) runOnce(ctx context.Context) error {
	var latest uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = r.source.LatestBlockNumber(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	from := r.chain.StartBlock
	watermark, ok, err := r.store.LoadWatermark(ctx, r.chain.ChainID)
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}
	if ok && watermark+1 > from {
		from = watermark + 1
	}

	if from > latest {
		return nil
	}

	ranges, err := SplitRange(from, latest, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.processRange(ctx, blockRange); err != nil {
			return fmt.Errorf("range %s: %w", blockRange, err)
		}
		if err := r.store.SaveWatermark(ctx, r.chain.ChainID, blockRange.To); err != nil {
			return fmt.Errorf("save watermark: %w", err)
		}
	}

	return nil
}

// processRange fetches and reduces one block range. Instances discovered
// while reducing may have emitted logs inside the same range, before they
// were in the filter; the range is re-fetched for those fresh addresses
// until the watch set stops growing, so the watermark never advances past
// unconsumed logs.
func (r *Runner) processRange(ctx context.Context, blockRange BlockRange) error {
	addresses, err := r.registry.WatchSet(r.chain.ChainID)
	if err != nil {
		return err
	}

	seen := make(map[common.Address]struct{}, len(addresses))
	for _, address := range addresses {
		seen[address] = struct{}{}
	}

	for {
		if err := r.fetchAndReduce(ctx, blockRange, addresses); err != nil {
			return err
		}

		current, err := r.registry.WatchSet(r.chain.ChainID)
		if err != nil {
			return err
		}
		fresh := make([]common.Address, 0)
		for _, address := range current {
			if _, ok := seen[address]; ok {
				continue
			}
			seen[address] = struct{}{}
			fresh = append(fresh, address)
		}
		if len(fresh) == 0 {
			return nil
		}
		addresses = fresh
	}
}

func (r *Runner) fetchAndReduce(ctx context.Context, blockRange BlockRange, addresses []common.Address) error {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, blockRange.From, blockRange.To, addresses, r.decoder.Topics())
		return err
	})
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	if len(logs) > 0 {
		r.logger.Info("reduce logs",
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
			zap.Int("count", len(logs)),
		)
	}

	for _, log := range logs {
		if log.Removed || !r.decoder.CanDecode(log) {
			continue
		}

		var ts uint64
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			ts, err = r.source.BlockTimestamp(ctx, log.BlockNumber)
			return err
		})
		if err != nil {
			return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}

		event, err := r.decoder.Decode(r.chain.ChainID, log, ts)
		if err != nil {
			// Wrong-shaped log from an unrelated contract reusing a topic.
			r.logger.Warn("undecodable log skipped",
				zap.String("tx", log.TxHash.Hex()),
				zap.Uint("log_index", log.Index),
				zap.Error(err),
			)
			continue
		}

		if err := r.apply(ctx, log.Address, *event); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) apply(ctx context.Context, emitter common.Address, event model.Event) error {
	if data, ok := event.Decoded.(model.StreamCreatedData); ok {
		if !r.registry.IsFactory(r.chain.ChainID, emitter) {
			r.logger.Warn("creation event from non-factory ignored", zap.String("emitter", event.Address))
			return nil
		}
		return r.discovery.HandleStreamCreated(ctx, r.caller, r.chain.Name, event, data)
	}

	if r.registry.IsFactory(r.chain.ChainID, emitter) {
		// Factories emit nothing else we track.
		return nil
	}
	return r.reducer.Apply(ctx, event)
}
