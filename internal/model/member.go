package model

// Member is a participant address with a payout stream inside one instance.
// A cap of zero means the stream is closed; re-enrollment reuses the same row.
type Member struct {
	ID               string `json:"id"`
	InstanceAddress  string `json:"instance_address"`
	Address          string `json:"address"`
	Cap              string `json:"cap"`
	Paid             string `json:"paid"`
	RequiresApproval bool   `json:"requires_approval"`
	JoinedAt         uint64 `json:"joined_at"`
	JoinedBlock      uint64 `json:"joined_block"`
	IsActive         bool   `json:"is_active"`
	UpdatedAt        uint64 `json:"updated_at"`
}

// Admin is an address with admin rights over one instance. Removal flips
// IsActive instead of deleting, preserving audit history.
type Admin struct {
	ID              string `json:"id"`
	InstanceAddress string `json:"instance_address"`
	Address         string `json:"address"`
	JoinedAt        uint64 `json:"joined_at"`
	JoinedBlock     uint64 `json:"joined_block"`
	IsActive        bool   `json:"is_active"`
	UpdatedAt       uint64 `json:"updated_at"`
}
