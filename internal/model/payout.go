package model

// Payout is an immutable record of a completed transfer out of an instance.
// Keyed by {txHash}-{logIndex} so multiple payouts in one transaction stay
// distinct. Append-only.
type Payout struct {
	ID              string `json:"id"`
	InstanceAddress string `json:"instance_address"`
	Member          string `json:"member"`
	Amount          string `json:"amount"`
	Reason          string `json:"reason"`
	Timestamp       uint64 `json:"timestamp"`
	TxHash          string `json:"tx_hash"`
	LogIndex        uint64 `json:"log_index"`
	BlockNumber     uint64 `json:"block_number"`
}
