package indexer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"grantstream/internal/model"
	"grantstream/internal/registry"
	"grantstream/internal/storage"
	"grantstream/internal/stream"
)

// Discovery turns factory creation events into tracked instances: a row in
// the store plus membership in the chain's watch set. Both sides are
// idempotent so a replayed creation event is absorbed.
type Discovery struct {
	store    storage.Store
	registry *registry.Registry
	logger   *zap.Logger
}

// NewDiscovery builds a Discovery with its dependencies.
func NewDiscovery(store storage.Store, reg *registry.Registry, logger *zap.Logger) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{store: store, registry: reg, logger: logger}
}

// Seed loads already-known instance addresses for a chain into the watch set.
// Called once at startup so restarts keep watching instances discovered in
// earlier runs.
func (d *Discovery) Seed(ctx context.Context, chainID uint64) (int, error) {
	addresses, err := d.store.ListInstanceAddresses(ctx, chainID)
	if err != nil {
		return 0, fmt.Errorf("list instances for chain %d: %w", chainID, err)
	}
	for _, address := range addresses {
		if err := d.registry.AddInstance(chainID, common.HexToAddress(address)); err != nil {
			return 0, err
		}
	}
	return len(addresses), nil
}

// HandleStreamCreated records a newly created instance and starts watching
// it. The instance config is read from the contract; when the read fails the
// instance is stored with defaults flagged for confirmation, because logs it
// emits must still be consumed.
func (d *Discovery) HandleStreamCreated(ctx context.Context, caller stream.ContractCaller, chainName string, event model.Event, data model.StreamCreatedData) error {
	instanceAddress := common.HexToAddress(data.Stream)

	instance := model.Instance{
		ID:           model.InstanceKey(event.ChainID, data.Stream),
		ChainID:      event.ChainID,
		ChainName:    chainName,
		Address:      data.Stream,
		Admin:        data.Admin,
		Name:         data.Name,
		Description:  data.Description,
		CreatedAt:    event.Timestamp,
		CreatedTx:    event.TxHash,
		CreatedBlock: event.BlockNumber,
	}

	inserted, err := d.store.InsertInstance(ctx, instance)
	if err != nil {
		return fmt.Errorf("insert instance %s: %w", instance.ID, err)
	}
	if !inserted {
		existing, err := d.store.GetInstanceState(ctx, data.Stream)
		if err != nil {
			return fmt.Errorf("get instance state %s: %w", data.Stream, err)
		}
		if existing != nil {
			// Replayed creation event. The config was captured the first time.
			d.logger.Debug("instance already known", zap.String("instance", data.Stream))
			return d.registry.AddInstance(event.ChainID, instanceAddress)
		}
		// Instance row without a state row: the first delivery stopped between
		// the two writes. Let the replay re-read the config and repair it.
		d.logger.Warn("instance missing config state, repairing", zap.String("instance", data.Stream))
	}

	state, err := stream.ReadInstanceConfig(ctx, caller, instanceAddress, d.logger)
	if err != nil {
		d.logger.Warn("instance config read failed, storing defaults",
			zap.String("instance", data.Stream),
			zap.Error(err),
		)
		state = model.DefaultInstanceState(data.Stream, event.Timestamp)
	}
	state.UpdatedAt = event.Timestamp
	if err := d.store.UpsertInstanceState(ctx, state); err != nil {
		return fmt.Errorf("store instance state %s: %w", data.Stream, err)
	}

	if inserted {
		d.logger.Info("instance discovered",
			zap.Uint64("chain_id", event.ChainID),
			zap.String("instance", data.Stream),
			zap.String("name", data.Name),
			zap.Uint64("block", event.BlockNumber),
		)
	}

	return d.registry.AddInstance(event.ChainID, instanceAddress)
}
