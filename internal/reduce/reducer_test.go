package reduce

import (
	"context"
	"testing"

	"grantstream/internal/model"
	"grantstream/internal/storage/memory"
)

const (
	instanceAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	memberAddr   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	adminAddr    = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func instanceEvent(name string, block uint64, logIndex uint64, decoded interface{}) model.Event {
	return model.Event{
		ChainID:     56,
		BlockNumber: block,
		Timestamp:   1700000000 + block,
		TxHash:      "0x00000000000000000000000000000000000000000000000000000000000000aa",
		LogIndex:    logIndex,
		Address:     instanceAddr,
		Name:        name,
		Decoded:     decoded,
	}
}

func TestMemberUpdatedActivation(t *testing.T) {
	store := memory.New()
	reducer := New(store, nil)
	ctx := context.Background()

	event := instanceEvent("MemberUpdated", 100, 0, model.MemberUpdatedData{Member: memberAddr, Cap: "5000"})
	if err := reducer.Apply(ctx, event); err != nil {
		t.Fatalf("apply: %v", err)
	}

	members, err := store.ListMembers(ctx, instanceAddr, false)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected one member, got %d", len(members))
	}
	member := members[0]
	if !member.IsActive || member.Cap != "5000" || member.Paid != "0" {
		t.Fatalf("member mismatch: %+v", member)
	}

	// Cap zero closes the stream but keeps the row.
	event = instanceEvent("MemberUpdated", 101, 0, model.MemberUpdatedData{Member: memberAddr, Cap: "0"})
	if err := reducer.Apply(ctx, event); err != nil {
		t.Fatalf("apply: %v", err)
	}

	members, _ = store.ListMembers(ctx, instanceAddr, false)
	if len(members) != 1 {
		t.Fatalf("expected one member, got %d", len(members))
	}
	if members[0].IsActive {
		t.Fatalf("cap zero must deactivate the member")
	}

	active, _ := store.ListMembers(ctx, instanceAddr, true)
	if len(active) != 0 {
		t.Fatalf("deactivated member still listed as active")
	}
}

func TestPayoutAccumulatesOnce(t *testing.T) {
	store := memory.New()
	reducer := New(store, nil)
	ctx := context.Background()

	enroll := instanceEvent("MemberUpdated", 100, 0, model.MemberUpdatedData{Member: memberAddr, Cap: "10000"})
	if err := reducer.Apply(ctx, enroll); err != nil {
		t.Fatalf("apply: %v", err)
	}

	payout := instanceEvent("FundsWithdrawn", 110, 3, model.FundsWithdrawnData{Member: memberAddr, Amount: "1500", Reason: "milestone"})
	for i := 0; i < 3; i++ {
		if err := reducer.Apply(ctx, payout); err != nil {
			t.Fatalf("apply replay %d: %v", i, err)
		}
	}

	members, _ := store.ListMembers(ctx, instanceAddr, true)
	if len(members) != 1 {
		t.Fatalf("expected one member")
	}
	if members[0].Paid != "1500" {
		t.Fatalf("replayed payout double-counted: paid=%s", members[0].Paid)
	}

	payouts, _ := store.ListPayouts(ctx, instanceAddr, "")
	if len(payouts) != 1 {
		t.Fatalf("expected one payout row, got %d", len(payouts))
	}
}

func TestWithdrawalStateMachine(t *testing.T) {
	store := memory.New()
	reducer := New(store, nil)
	ctx := context.Background()

	requested := instanceEvent("WithdrawalRequested", 200, 0, model.WithdrawalRequestedData{
		Member: memberAddr, RequestID: 1, Amount: "900", Reason: "equipment",
	})
	if err := reducer.Apply(ctx, requested); err != nil {
		t.Fatalf("apply: %v", err)
	}

	approved := instanceEvent("WithdrawalApproved", 201, 0, model.WithdrawalApprovedData{Member: memberAddr, RequestID: 1})
	if err := reducer.Apply(ctx, approved); err != nil {
		t.Fatalf("apply: %v", err)
	}

	requests, _ := store.ListWithdrawals(ctx, instanceAddr, memberAddr)
	if len(requests) != 1 || requests[0].Status != model.WithdrawalApproved {
		t.Fatalf("expected approved request: %+v", requests)
	}

	// Rejection after approval is illegal and must not change the row.
	rejected := instanceEvent("WithdrawalRejected", 202, 0, model.WithdrawalRejectedData{Member: memberAddr, RequestID: 1})
	if err := reducer.Apply(ctx, rejected); err != nil {
		t.Fatalf("apply: %v", err)
	}
	requests, _ = store.ListWithdrawals(ctx, instanceAddr, memberAddr)
	if requests[0].Status != model.WithdrawalApproved {
		t.Fatalf("illegal transition applied: %+v", requests[0])
	}

	completed := instanceEvent("WithdrawalCompleted", 203, 0, model.WithdrawalCompletedData{Member: memberAddr, RequestID: 1})
	if err := reducer.Apply(ctx, completed); err != nil {
		t.Fatalf("apply: %v", err)
	}
	requests, _ = store.ListWithdrawals(ctx, instanceAddr, memberAddr)
	if requests[0].Status != model.WithdrawalCompleted {
		t.Fatalf("expected completed request: %+v", requests[0])
	}

	// Replaying the whole sequence is a no-op.
	for _, event := range []model.Event{requested, approved, completed} {
		if err := reducer.Apply(ctx, event); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}
	requests, _ = store.ListWithdrawals(ctx, instanceAddr, memberAddr)
	if len(requests) != 1 || requests[0].Status != model.WithdrawalCompleted {
		t.Fatalf("replay changed state: %+v", requests)
	}
}

func TestWithdrawalTransitionUnknownRequest(t *testing.T) {
	store := memory.New()
	reducer := New(store, nil)
	ctx := context.Background()

	approved := instanceEvent("WithdrawalApproved", 300, 0, model.WithdrawalApprovedData{Member: memberAddr, RequestID: 9})
	if err := reducer.Apply(ctx, approved); err != nil {
		t.Fatalf("transition for unknown request must be skipped, got: %v", err)
	}

	requests, _ := store.ListWithdrawals(ctx, instanceAddr, memberAddr)
	if len(requests) != 0 {
		t.Fatalf("no row should be fabricated: %+v", requests)
	}
}

func TestApprovalRequirementScopes(t *testing.T) {
	store := memory.New()
	reducer := New(store, nil)
	ctx := context.Background()

	enroll := instanceEvent("MemberUpdated", 400, 0, model.MemberUpdatedData{Member: memberAddr, Cap: "100"})
	if err := reducer.Apply(ctx, enroll); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Subject equal to the emitting instance flips the instance default.
	instanceWide := instanceEvent("ApprovalRequirementChanged", 401, 0, model.ApprovalRequirementChangedData{
		Subject: instanceAddr, Required: true,
	})
	if err := reducer.Apply(ctx, instanceWide); err != nil {
		t.Fatalf("apply: %v", err)
	}

	state, _ := store.GetInstanceState(ctx, instanceAddr)
	if state == nil || !state.RequiresApproval {
		t.Fatalf("instance default not updated: %+v", state)
	}

	members, _ := store.ListMembers(ctx, instanceAddr, true)
	if members[0].RequiresApproval {
		t.Fatalf("instance-wide change must not touch member overrides")
	}

	// Any other subject is a per-member override.
	perMember := instanceEvent("ApprovalRequirementChanged", 402, 0, model.ApprovalRequirementChangedData{
		Subject: memberAddr, Required: true,
	})
	if err := reducer.Apply(ctx, perMember); err != nil {
		t.Fatalf("apply: %v", err)
	}

	members, _ = store.ListMembers(ctx, instanceAddr, true)
	if !members[0].RequiresApproval {
		t.Fatalf("member override not applied: %+v", members[0])
	}
}

func TestAdminLifecycle(t *testing.T) {
	store := memory.New()
	reducer := New(store, nil)
	ctx := context.Background()

	added := instanceEvent("AdminAdded", 500, 0, model.AdminAddedData{Admin: adminAddr})
	if err := reducer.Apply(ctx, added); err != nil {
		t.Fatalf("apply: %v", err)
	}

	admins, _ := store.ListAdmins(ctx, instanceAddr, true)
	if len(admins) != 1 || !admins[0].IsActive {
		t.Fatalf("expected one active admin: %+v", admins)
	}

	removed := instanceEvent("AdminRemoved", 501, 0, model.AdminRemovedData{Admin: adminAddr})
	if err := reducer.Apply(ctx, removed); err != nil {
		t.Fatalf("apply: %v", err)
	}

	admins, _ = store.ListAdmins(ctx, instanceAddr, true)
	if len(admins) != 0 {
		t.Fatalf("removed admin still active: %+v", admins)
	}
	all, _ := store.ListAdmins(ctx, instanceAddr, false)
	if len(all) != 1 {
		t.Fatalf("removal must keep the audit row: %+v", all)
	}
}

func TestConfigEventsRepairDefaults(t *testing.T) {
	store := memory.New()
	reducer := New(store, nil)
	ctx := context.Background()

	if err := store.UpsertInstanceState(ctx, model.DefaultInstanceState(instanceAddr, 1)); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	locked := instanceEvent("LockStatusChanged", 600, 0, model.LockStatusChangedData{Locked: true})
	if err := reducer.Apply(ctx, locked); err != nil {
		t.Fatalf("apply: %v", err)
	}

	state, _ := store.GetInstanceState(ctx, instanceAddr)
	if !state.Locked {
		t.Fatalf("lock not applied: %+v", state)
	}
	if state.NeedsConfirmation {
		t.Fatalf("config event must clear the confirmation flag")
	}
}
