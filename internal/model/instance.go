package model

// Instance is one deployed payout-stream contract tracked by the indexer.
// Created once by discovery and never deleted.
type Instance struct {
	ID           string `json:"id"`
	ChainID      uint64 `json:"chain_id"`
	ChainName    string `json:"chain_name"`
	Address      string `json:"address"`
	Admin        string `json:"admin"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	CreatedAt    uint64 `json:"created_at"`
	CreatedTx    string `json:"created_tx"`
	CreatedBlock uint64 `json:"created_block"`
}

// InstanceState holds the current mode flags for one instance. One row per
// instance, keyed by the contract address; mutated field by field as
// configuration events arrive.
type InstanceState struct {
	InstanceAddress   string `json:"instance_address"`
	TokenMode         bool   `json:"token_mode"`
	TokenAddress      string `json:"token_address,omitempty"`
	TokenSymbol       string `json:"token_symbol,omitempty"`
	TokenDecimals     uint8  `json:"token_decimals"`
	OneTimePayout     bool   `json:"one_time_payout"`
	CycleSeconds      uint64 `json:"cycle_seconds"`
	Locked            bool   `json:"locked"`
	RequiresApproval  bool   `json:"requires_approval"`
	ApplicationsOpen  bool   `json:"applications_open"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
	UpdatedAt         uint64 `json:"updated_at"`
}

// DefaultInstanceState is the state written when the discovery-time
// configuration read fails. Logs repair the stale fields later.
func DefaultInstanceState(instanceAddress string, ts uint64) InstanceState {
	return InstanceState{
		InstanceAddress:   instanceAddress,
		TokenDecimals:     18,
		NeedsConfirmation: true,
		UpdatedAt:         ts,
	}
}
