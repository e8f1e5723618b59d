package registry

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Chain is the static configuration for one supported chain.
type Chain struct {
	ChainID    uint64
	Name       string
	RPCURL     string
	Factories  []common.Address
	StartBlock uint64
}

// Registry holds the supported chains and the mutable per-chain watch set of
// discovered instance addresses. Discovery appends; the fetch loop reads a
// snapshot at the start of each polling cycle.
type Registry struct {
	chains map[uint64]*chainEntry
	order  []uint64
}

type chainEntry struct {
	chain Chain

	mu        sync.RWMutex
	instances map[common.Address]struct{}
}

// New builds a registry from static chain configuration.
func New(chains []Chain) (*Registry, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("at least one chain is required")
	}

	r := &Registry{chains: make(map[uint64]*chainEntry, len(chains))}
	for _, chain := range chains {
		if chain.ChainID == 0 {
			return nil, fmt.Errorf("chain id is required")
		}
		if _, ok := r.chains[chain.ChainID]; ok {
			return nil, fmt.Errorf("duplicate chain id: %d", chain.ChainID)
		}
		if chain.RPCURL == "" {
			return nil, fmt.Errorf("chain %d: rpc url is required", chain.ChainID)
		}
		if len(chain.Factories) == 0 {
			return nil, fmt.Errorf("chain %d: at least one factory address is required", chain.ChainID)
		}
		r.chains[chain.ChainID] = &chainEntry{
			chain:     chain,
			instances: make(map[common.Address]struct{}),
		}
		r.order = append(r.order, chain.ChainID)
	}
	return r, nil
}

// Chains returns the configured chains in declaration order.
func (r *Registry) Chains() []Chain {
	out := make([]Chain, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.chains[id].chain)
	}
	return out
}

// Chain returns the configuration for one chain id.
func (r *Registry) Chain(chainID uint64) (Chain, bool) {
	entry, ok := r.chains[chainID]
	if !ok {
		return Chain{}, false
	}
	return entry.chain, true
}

// IsSupported reports whether the chain id is configured.
func (r *Registry) IsSupported(chainID uint64) bool {
	_, ok := r.chains[chainID]
	return ok
}

// AddInstance registers a discovered instance address on a chain. Duplicate
// additions are absorbed.
func (r *Registry) AddInstance(chainID uint64, address common.Address) error {
	entry, ok := r.chains[chainID]
	if !ok {
		return fmt.Errorf("unsupported chain id: %d", chainID)
	}
	entry.mu.Lock()
	entry.instances[address] = struct{}{}
	entry.mu.Unlock()
	return nil
}

// WatchSet returns a snapshot of every address to fetch logs for on a chain:
// the fixed factories plus all discovered instances.
func (r *Registry) WatchSet(chainID uint64) ([]common.Address, error) {
	entry, ok := r.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("unsupported chain id: %d", chainID)
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	out := make([]common.Address, 0, len(entry.chain.Factories)+len(entry.instances))
	out = append(out, entry.chain.Factories...)
	for address := range entry.instances {
		out = append(out, address)
	}
	return out, nil
}

// IsFactory reports whether the address is a factory on the chain.
func (r *Registry) IsFactory(chainID uint64, address common.Address) bool {
	entry, ok := r.chains[chainID]
	if !ok {
		return false
	}
	for _, factory := range entry.chain.Factories {
		if factory == address {
			return true
		}
	}
	return false
}
