package storage

import (
	"context"

	"grantstream/internal/model"
)

// InstanceFilter narrows instance listings. Zero values mean no filtering.
type InstanceFilter struct {
	ChainID uint64
	Name    string
}

// TransitionResult reports the outcome of a guarded withdrawal status update.
// Applied=false with Found=true means the row exists but was not in the
// expected prior state; the current status lets callers tell a duplicate
// delivery from an illegal transition.
type TransitionResult struct {
	Applied bool
	Found   bool
	Status  model.WithdrawalStatus
}

// RoleAddresses holds the instance addresses where one address has an active
// admin or member row.
type RoleAddresses struct {
	AdminOf  []string
	MemberOf []string
}

// Store is the materialized projection of on-chain state. Every mutation is
// an idempotent upsert keyed by a deterministic composite identity, so
// at-least-once delivery and range replays are safe.
type Store interface {
	// Discovery and reducers.
	InsertInstance(ctx context.Context, instance model.Instance) (bool, error)
	UpsertInstanceState(ctx context.Context, state model.InstanceState) error
	SetInstanceLocked(ctx context.Context, instanceAddress string, locked bool, ts uint64) error
	SetInstanceApprovalDefault(ctx context.Context, instanceAddress string, required bool, ts uint64) error
	SetInstanceApplicationsOpen(ctx context.Context, instanceAddress string, open bool, ts uint64) error
	UpsertMember(ctx context.Context, member model.Member) error
	SetMemberApproval(ctx context.Context, instanceAddress, memberAddress string, required bool, ts uint64) (bool, error)
	UpsertAdmin(ctx context.Context, admin model.Admin) error
	ApplyPayout(ctx context.Context, payout model.Payout) (bool, error)
	InsertWithdrawal(ctx context.Context, request model.WithdrawalRequest) (bool, error)
	TransitionWithdrawal(ctx context.Context, id string, from, to model.WithdrawalStatus, ts uint64) (TransitionResult, error)

	// Per-chain fetch watermark.
	LoadWatermark(ctx context.Context, chainID uint64) (uint64, bool, error)
	SaveWatermark(ctx context.Context, chainID uint64, block uint64) error

	// Reads.
	ListInstances(ctx context.Context, filter InstanceFilter) ([]model.Instance, error)
	GetInstance(ctx context.Context, address string) (*model.Instance, error)
	GetInstanceState(ctx context.Context, address string) (*model.InstanceState, error)
	ListInstanceAddresses(ctx context.Context, chainID uint64) ([]string, error)
	ListMembers(ctx context.Context, instanceAddress string, activeOnly bool) ([]model.Member, error)
	ListAdmins(ctx context.Context, instanceAddress string, activeOnly bool) ([]model.Admin, error)
	ListPayouts(ctx context.Context, instanceAddress, memberAddress string) ([]model.Payout, error)
	ListWithdrawals(ctx context.Context, instanceAddress, memberAddress string) ([]model.WithdrawalRequest, error)
	ListPendingWithdrawals(ctx context.Context, instanceAddresses []string) ([]model.WithdrawalRequest, error)
	ActiveRoles(ctx context.Context, address string) (RoleAddresses, error)
	Analytics(ctx context.Context) (*model.Analytics, error)
}
