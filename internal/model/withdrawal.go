package model

// WithdrawalStatus is the state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

// CanTransition reports whether moving from s to next is a legal step.
// pending -> approved | rejected, approved -> completed; everything else is
// terminal.
func (s WithdrawalStatus) CanTransition(next WithdrawalStatus) bool {
	switch s {
	case WithdrawalPending:
		return next == WithdrawalApproved || next == WithdrawalRejected
	case WithdrawalApproved:
		return next == WithdrawalCompleted
	default:
		return false
	}
}

// WithdrawalRequest tracks the approval workflow for one requested payout.
// The request sequence number is assigned on-chain and preserved verbatim.
type WithdrawalRequest struct {
	ID              string           `json:"id"`
	InstanceAddress string           `json:"instance_address"`
	Member          string           `json:"member"`
	RequestID       uint64           `json:"request_id"`
	Amount          string           `json:"amount"`
	Reason          string           `json:"reason"`
	Status          WithdrawalStatus `json:"status"`
	RequestedAt     uint64           `json:"requested_at"`
	LastUpdated     uint64           `json:"last_updated"`
	BlockNumber     uint64           `json:"block_number"`
}
