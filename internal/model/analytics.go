package model

// ChainTotals is the per-chain rollup of the analytics view.
type ChainTotals struct {
	ChainID           uint64 `json:"chain_id"`
	ChainName         string `json:"chain_name"`
	InstanceCount     uint64 `json:"instance_count"`
	MemberCount       uint64 `json:"member_count"`
	ActiveMemberCount uint64 `json:"active_member_count"`
	TotalPaid         string `json:"total_paid"`
}

// InstanceSummary is the per-instance rollup of the analytics view.
type InstanceSummary struct {
	ChainID           uint64 `json:"chain_id"`
	InstanceAddress   string `json:"instance_address"`
	Name              string `json:"name"`
	MemberCount       uint64 `json:"member_count"`
	ActiveMemberCount uint64 `json:"active_member_count"`
	PayoutCount       uint64 `json:"payout_count"`
	TotalPaid         string `json:"total_paid"`
}

// Analytics is the full derived view. Computed on read, never persisted.
type Analytics struct {
	Chains    []ChainTotals     `json:"chains"`
	Instances []InstanceSummary `json:"instances"`
}
