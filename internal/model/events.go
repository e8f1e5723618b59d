package model

// Event is a decoded contract log with its chain context. All addresses are
// normalized lower-case and all big amounts carried as decimal strings.
type Event struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	Timestamp   uint64      `json:"timestamp"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	Name        string      `json:"name"`
	Decoded     interface{} `json:"decoded"`
}

// StreamCreatedData is the factory event announcing a new instance.
type StreamCreatedData struct {
	Stream      string `json:"stream"`
	Admin       string `json:"admin"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MemberUpdatedData carries an enrollment or cap change; a cap of zero closes
// the member's stream.
type MemberUpdatedData struct {
	Member string `json:"member"`
	Cap    string `json:"cap"`
}

// AdminAddedData grants admin rights to an address.
type AdminAddedData struct {
	Admin string `json:"admin"`
}

// AdminRemovedData revokes admin rights from an address.
type AdminRemovedData struct {
	Admin string `json:"admin"`
}

// FundsWithdrawnData records a completed payout.
type FundsWithdrawnData struct {
	Member string `json:"member"`
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// WithdrawalRequestedData opens a withdrawal request. The request id is
// assigned on-chain, monotonically per member.
type WithdrawalRequestedData struct {
	Member    string `json:"member"`
	RequestID uint64 `json:"request_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
}

// WithdrawalApprovedData moves a pending request to approved.
type WithdrawalApprovedData struct {
	Member    string `json:"member"`
	RequestID uint64 `json:"request_id"`
}

// WithdrawalRejectedData moves a pending request to rejected.
type WithdrawalRejectedData struct {
	Member    string `json:"member"`
	RequestID uint64 `json:"request_id"`
}

// WithdrawalCompletedData moves an approved request to completed.
type WithdrawalCompletedData struct {
	Member    string `json:"member"`
	RequestID uint64 `json:"request_id"`
}

// LockStatusChangedData toggles the instance lock flag.
type LockStatusChangedData struct {
	Locked bool `json:"locked"`
}

// ApprovalRequirementChangedData changes the approval requirement. The
// contract reuses one event for both scopes: when Subject equals the emitting
// instance's own address the instance-wide default changes, otherwise the
// named member's override changes.
type ApprovalRequirementChangedData struct {
	Subject  string `json:"subject"`
	Required bool   `json:"required"`
}

// ApplicationsStatusChangedData toggles whether open applications are
// accepted.
type ApplicationsStatusChangedData struct {
	Open bool `json:"open"`
}
