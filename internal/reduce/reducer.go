// Package reduce maps decoded instance events onto materialized-store
// mutations. Every reducer performs exactly one upsert derived only from the
// event and its block metadata, so replaying a range is a no-op.
package reduce

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"grantstream/internal/model"
	"grantstream/internal/storage"
)

// Reducer applies decoded events to the store.
type Reducer struct {
	store  storage.Store
	logger *zap.Logger
}

func New(store storage.Store, logger *zap.Logger) *Reducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reducer{store: store, logger: logger}
}

// Apply routes one decoded event to its reducer. Unknown event names are an
// error; factory events are handled by discovery, not here.
func (r *Reducer) Apply(ctx context.Context, event model.Event) error {
	switch data := event.Decoded.(type) {
	case model.MemberUpdatedData:
		return r.memberUpdated(ctx, event, data)
	case model.AdminAddedData:
		return r.adminChanged(ctx, event, data.Admin, true)
	case model.AdminRemovedData:
		return r.adminChanged(ctx, event, data.Admin, false)
	case model.FundsWithdrawnData:
		return r.fundsWithdrawn(ctx, event, data)
	case model.WithdrawalRequestedData:
		return r.withdrawalRequested(ctx, event, data)
	case model.WithdrawalApprovedData:
		return r.withdrawalTransition(ctx, event, data.Member, data.RequestID, model.WithdrawalPending, model.WithdrawalApproved)
	case model.WithdrawalRejectedData:
		return r.withdrawalTransition(ctx, event, data.Member, data.RequestID, model.WithdrawalPending, model.WithdrawalRejected)
	case model.WithdrawalCompletedData:
		return r.withdrawalTransition(ctx, event, data.Member, data.RequestID, model.WithdrawalApproved, model.WithdrawalCompleted)
	case model.LockStatusChangedData:
		return r.store.SetInstanceLocked(ctx, event.Address, data.Locked, event.Timestamp)
	case model.ApprovalRequirementChangedData:
		return r.approvalChanged(ctx, event, data)
	case model.ApplicationsStatusChangedData:
		return r.store.SetInstanceApplicationsOpen(ctx, event.Address, data.Open, event.Timestamp)
	default:
		return fmt.Errorf("no reducer for event %s", event.Name)
	}
}

func (r *Reducer) memberUpdated(ctx context.Context, event model.Event, data model.MemberUpdatedData) error {
	member := model.Member{
		ID:              model.MemberKey(event.Address, data.Member),
		InstanceAddress: event.Address,
		Address:         data.Member,
		Cap:             data.Cap,
		Paid:            "0",
		JoinedAt:        event.Timestamp,
		JoinedBlock:     event.BlockNumber,
		IsActive:        data.Cap != "0",
		UpdatedAt:       event.Timestamp,
	}
	return r.store.UpsertMember(ctx, member)
}

func (r *Reducer) adminChanged(ctx context.Context, event model.Event, address string, active bool) error {
	admin := model.Admin{
		ID:              model.MemberKey(event.Address, address),
		InstanceAddress: event.Address,
		Address:         address,
		JoinedAt:        event.Timestamp,
		JoinedBlock:     event.BlockNumber,
		IsActive:        active,
		UpdatedAt:       event.Timestamp,
	}
	return r.store.UpsertAdmin(ctx, admin)
}

func (r *Reducer) fundsWithdrawn(ctx context.Context, event model.Event, data model.FundsWithdrawnData) error {
	payout := model.Payout{
		ID:              model.PayoutKey(event.TxHash, event.LogIndex),
		InstanceAddress: event.Address,
		Member:          data.Member,
		Amount:          data.Amount,
		Reason:          data.Reason,
		Timestamp:       event.Timestamp,
		TxHash:          event.TxHash,
		LogIndex:        event.LogIndex,
		BlockNumber:     event.BlockNumber,
	}
	inserted, err := r.store.ApplyPayout(ctx, payout)
	if err != nil {
		return err
	}
	if !inserted {
		r.logger.Debug("duplicate payout absorbed", zap.String("id", payout.ID))
	}
	return nil
}

func (r *Reducer) withdrawalRequested(ctx context.Context, event model.Event, data model.WithdrawalRequestedData) error {
	request := model.WithdrawalRequest{
		ID:              model.WithdrawalKey(event.Address, data.Member, data.RequestID),
		InstanceAddress: event.Address,
		Member:          data.Member,
		RequestID:       data.RequestID,
		Amount:          data.Amount,
		Reason:          data.Reason,
		Status:          model.WithdrawalPending,
		RequestedAt:     event.Timestamp,
		LastUpdated:     event.Timestamp,
		BlockNumber:     event.BlockNumber,
	}
	inserted, err := r.store.InsertWithdrawal(ctx, request)
	if err != nil {
		return err
	}
	if !inserted {
		r.logger.Debug("duplicate withdrawal request absorbed", zap.String("id", request.ID))
	}
	return nil
}

// withdrawalTransition moves a request along the state machine. A missing row
// is a data-integrity fault: the amount and reason only exist on the original
// request event, so fabricating a row would be wrong. Logged and skipped.
func (r *Reducer) withdrawalTransition(ctx context.Context, event model.Event, member string, requestID uint64, from, to model.WithdrawalStatus) error {
	id := model.WithdrawalKey(event.Address, member, requestID)
	result, err := r.store.TransitionWithdrawal(ctx, id, from, to, event.Timestamp)
	if err != nil {
		return err
	}
	if result.Applied {
		return nil
	}
	if !result.Found {
		r.logger.Warn("withdrawal transition for unknown request",
			zap.String("id", id),
			zap.String("to", string(to)),
			zap.Uint64("block", event.BlockNumber),
		)
		return nil
	}
	if result.Status == to || (to == model.WithdrawalApproved && result.Status == model.WithdrawalCompleted) {
		// Redelivery of an already-applied transition.
		r.logger.Debug("duplicate withdrawal transition absorbed", zap.String("id", id), zap.String("status", string(result.Status)))
		return nil
	}
	r.logger.Warn("illegal withdrawal transition skipped",
		zap.String("id", id),
		zap.String("current", string(result.Status)),
		zap.String("to", string(to)),
	)
	return nil
}

// approvalChanged handles the shared approval event. The contract emits the
// same event for both scopes: the subject address equal to the emitting
// instance means the instance-wide default changed, any other subject is a
// per-member override.
func (r *Reducer) approvalChanged(ctx context.Context, event model.Event, data model.ApprovalRequirementChangedData) error {
	if data.Subject == event.Address {
		return r.store.SetInstanceApprovalDefault(ctx, event.Address, data.Required, event.Timestamp)
	}

	found, err := r.store.SetMemberApproval(ctx, event.Address, data.Subject, data.Required, event.Timestamp)
	if err != nil {
		return err
	}
	if !found {
		r.logger.Warn("approval override for unknown member",
			zap.String("instance", event.Address),
			zap.String("member", data.Subject),
		)
	}
	return nil
}
