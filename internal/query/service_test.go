package query

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"grantstream/internal/model"
	"grantstream/internal/registry"
	"grantstream/internal/storage/memory"
)

const (
	instanceA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	instanceB = "0xabababababababababababababababababababab"
	creator   = "0x1111111111111111111111111111111111111111"
	builder   = "0x2222222222222222222222222222222222222222"
	coAdmin   = "0x3333333333333333333333333333333333333333"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Chain{
		{
			ChainID:   56,
			Name:      "bsc",
			RPCURL:    "http://localhost:8545",
			Factories: []common.Address{common.HexToAddress("0x9999999999999999999999999999999999999999")},
		},
		{
			ChainID:   10,
			Name:      "optimism",
			RPCURL:    "http://localhost:8546",
			Factories: []common.Address{common.HexToAddress("0x9999999999999999999999999999999999999999")},
		},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	instances := []model.Instance{
		{
			ID: "56-" + instanceA, ChainID: 56, ChainName: "bsc", Address: instanceA,
			Admin: creator, Name: "design grants", CreatedAt: 100, CreatedBlock: 10,
		},
		{
			ID: "10-" + instanceB, ChainID: 10, ChainName: "optimism", Address: instanceB,
			Admin: coAdmin, Name: "infra grants", CreatedAt: 200, CreatedBlock: 20,
		},
	}
	for _, instance := range instances {
		if _, err := store.InsertInstance(ctx, instance); err != nil {
			t.Fatalf("seed instance: %v", err)
		}
	}

	members := []model.Member{
		{
			ID: model.MemberKey(instanceA, builder), InstanceAddress: instanceA, Address: builder,
			Cap: "1000", Paid: "0", IsActive: true, JoinedAt: 110, UpdatedAt: 110,
		},
		{
			ID: model.MemberKey(instanceB, builder), InstanceAddress: instanceB, Address: builder,
			Cap: "0", Paid: "500", IsActive: false, JoinedAt: 210, UpdatedAt: 220,
		},
	}
	for _, member := range members {
		if err := store.UpsertMember(ctx, member); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}

	admin := model.Admin{
		ID: model.MemberKey(instanceA, coAdmin), InstanceAddress: instanceA, Address: coAdmin,
		IsActive: true, JoinedAt: 105, UpdatedAt: 105,
	}
	if err := store.UpsertAdmin(ctx, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	return store
}

func TestListInstancesRoleAnnotation(t *testing.T) {
	store := seedStore(t)
	service := New(store, newRegistry(t), nil)
	ctx := context.Background()

	views, err := service.ListInstances(ctx, ListFilter{Address: builder})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two instances, got %d", len(views))
	}

	roles := map[string]Role{}
	for _, view := range views {
		roles[view.Address] = view.Role
	}
	if roles[instanceA] != RoleBuilder {
		t.Fatalf("active member must be BUILDER, got %q", roles[instanceA])
	}
	if roles[instanceB] != "" {
		t.Fatalf("inactive member must carry no role, got %q", roles[instanceB])
	}
}

func TestListInstancesPrimaryAdmin(t *testing.T) {
	store := seedStore(t)
	service := New(store, newRegistry(t), nil)
	ctx := context.Background()

	// creator has no admin row, only the creation-time primary admin slot.
	views, err := service.ListInstances(ctx, ListFilter{Address: creator})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, view := range views {
		if view.Address == instanceA && view.Role != RoleAdmin {
			t.Fatalf("primary admin must be ADMIN, got %q", view.Role)
		}
	}
}

func TestListInstancesAdminWinsOverBuilder(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	member := model.Member{
		ID: model.MemberKey(instanceA, coAdmin), InstanceAddress: instanceA, Address: coAdmin,
		Cap: "100", Paid: "0", IsActive: true,
	}
	if err := store.UpsertMember(ctx, member); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	service := New(store, newRegistry(t), nil)
	views, err := service.ListInstances(ctx, ListFilter{Address: coAdmin})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, view := range views {
		if view.Address == instanceA && view.Role != RoleAdmin {
			t.Fatalf("ADMIN must win over BUILDER, got %q", view.Role)
		}
	}
}

func TestListInstancesUnsupportedChain(t *testing.T) {
	service := New(seedStore(t), newRegistry(t), nil)

	_, err := service.ListInstances(context.Background(), ListFilter{ChainID: 999})
	if err == nil {
		t.Fatalf("expected unsupported chain error")
	}
	if _, ok := err.(ErrUnsupportedChain); !ok {
		t.Fatalf("expected ErrUnsupportedChain, got %T", err)
	}
}

func TestGetInstanceDetail(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()
	if err := store.UpsertInstanceState(ctx, model.InstanceState{
		InstanceAddress: instanceA, TokenDecimals: 18, CycleSeconds: 604800, UpdatedAt: 100,
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	service := New(store, newRegistry(t), nil)
	detail, err := service.GetInstanceDetail(ctx, instanceA)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail == nil {
		t.Fatalf("expected detail")
	}
	if detail.Instance.Address != instanceA {
		t.Fatalf("instance mismatch: %+v", detail.Instance)
	}
	if len(detail.Members) != 1 || detail.Members[0].Address != builder {
		t.Fatalf("active members mismatch: %+v", detail.Members)
	}
	if len(detail.Admins) != 1 || detail.Admins[0].Address != coAdmin {
		t.Fatalf("active admins mismatch: %+v", detail.Admins)
	}
	if detail.State == nil || detail.State.CycleSeconds != 604800 {
		t.Fatalf("state mismatch: %+v", detail.State)
	}
}

func TestGetInstanceDetailNotFound(t *testing.T) {
	service := New(seedStore(t), newRegistry(t), nil)

	detail, err := service.GetInstanceDetail(context.Background(), "0xdddddddddddddddddddddddddddddddddddddddd")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail != nil {
		t.Fatalf("expected nil for unknown instance")
	}
}

func TestWithdrawalsNewestFirst(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	payouts := []model.Payout{
		{ID: "0xt1-0", InstanceAddress: instanceA, Member: builder, Amount: "100", BlockNumber: 11, LogIndex: 0, Timestamp: 111, TxHash: "0xt1"},
		{ID: "0xt2-0", InstanceAddress: instanceA, Member: builder, Amount: "200", BlockNumber: 15, LogIndex: 0, Timestamp: 155, TxHash: "0xt2"},
	}
	for _, payout := range payouts {
		if _, err := store.ApplyPayout(ctx, payout); err != nil {
			t.Fatalf("seed payout: %v", err)
		}
	}

	requests := []model.WithdrawalRequest{
		{ID: model.WithdrawalKey(instanceA, builder, 1), InstanceAddress: instanceA, Member: builder, RequestID: 1, Amount: "50", Status: model.WithdrawalPending, BlockNumber: 12},
		{ID: model.WithdrawalKey(instanceA, builder, 2), InstanceAddress: instanceA, Member: builder, RequestID: 2, Amount: "60", Status: model.WithdrawalPending, BlockNumber: 16},
	}
	for _, request := range requests {
		if _, err := store.InsertWithdrawal(ctx, request); err != nil {
			t.Fatalf("seed request: %v", err)
		}
	}

	service := New(store, newRegistry(t), nil)
	history, err := service.Withdrawals(ctx, instanceA, "")
	if err != nil {
		t.Fatalf("withdrawals: %v", err)
	}
	if history == nil {
		t.Fatalf("expected history")
	}
	if len(history.Payouts) != 2 || history.Payouts[0].Amount != "200" {
		t.Fatalf("payouts not newest first: %+v", history.Payouts)
	}
	if len(history.Requests) != 2 || history.Requests[0].RequestID != 2 {
		t.Fatalf("requests not newest first: %+v", history.Requests)
	}
}

func TestUserInstances(t *testing.T) {
	service := New(seedStore(t), newRegistry(t), nil)

	// coAdmin holds an admin row on instanceA and created instanceB.
	views, err := service.UserInstances(context.Background(), coAdmin)
	if err != nil {
		t.Fatalf("user instances: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two instances, got %d", len(views))
	}
	if views[0].Address != instanceB || views[0].Role != RoleAdmin {
		t.Fatalf("view mismatch: %+v", views[0])
	}
	if views[1].Address != instanceA || views[1].Role != RoleAdmin {
		t.Fatalf("view mismatch: %+v", views[1])
	}
}

func TestUserInstancesPrimaryAdminOnly(t *testing.T) {
	service := New(seedStore(t), newRegistry(t), nil)

	// creator has no admin row, only the creation-time primary admin slot,
	// and must still see the instance with the ADMIN tag.
	views, err := service.UserInstances(context.Background(), creator)
	if err != nil {
		t.Fatalf("user instances: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one instance, got %d", len(views))
	}
	if views[0].Address != instanceA || views[0].Role != RoleAdmin {
		t.Fatalf("view mismatch: %+v", views[0])
	}
}

func TestPendingRequestsAcrossInstances(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	requests := []model.WithdrawalRequest{
		{ID: model.WithdrawalKey(instanceA, builder, 1), InstanceAddress: instanceA, Member: builder, RequestID: 1, Amount: "50", Status: model.WithdrawalPending, BlockNumber: 12},
		{ID: model.WithdrawalKey(instanceB, builder, 1), InstanceAddress: instanceB, Member: builder, RequestID: 1, Amount: "70", Status: model.WithdrawalPending, BlockNumber: 22},
		{ID: model.WithdrawalKey(instanceA, builder, 2), InstanceAddress: instanceA, Member: builder, RequestID: 2, Amount: "80", Status: model.WithdrawalCompleted, BlockNumber: 13},
	}
	for _, request := range requests {
		if _, err := store.InsertWithdrawal(ctx, request); err != nil {
			t.Fatalf("seed request: %v", err)
		}
	}

	service := New(store, newRegistry(t), nil)

	// coAdmin administers instanceA (admin row) and instanceB (primary admin).
	pending, err := service.PendingRequests(ctx, coAdmin)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected two pending requests, got %d", len(pending))
	}
	for _, request := range pending {
		if request.Status != model.WithdrawalPending {
			t.Fatalf("non-pending request returned: %+v", request)
		}
	}

	// builder administers nothing.
	pending, err = service.PendingRequests(ctx, builder)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests, got %+v", pending)
	}
}

func TestAnalyticsRollup(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	payout := model.Payout{
		ID: "0xt9-0", InstanceAddress: instanceA, Member: builder, Amount: "300",
		BlockNumber: 12, Timestamp: 120, TxHash: "0xt9",
	}
	if _, err := store.ApplyPayout(ctx, payout); err != nil {
		t.Fatalf("seed payout: %v", err)
	}

	service := New(store, newRegistry(t), nil)
	analytics, err := service.Analytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}

	if len(analytics.Chains) != 2 {
		t.Fatalf("expected two chains, got %+v", analytics.Chains)
	}
	bsc := analytics.Chains[1]
	if analytics.Chains[0].ChainID == 56 {
		bsc = analytics.Chains[0]
	}
	if bsc.InstanceCount != 1 || bsc.MemberCount != 1 || bsc.ActiveMemberCount != 1 {
		t.Fatalf("chain totals mismatch: %+v", bsc)
	}
	if bsc.TotalPaid != "300" {
		t.Fatalf("total paid mismatch: %+v", bsc)
	}

	if len(analytics.Instances) != 2 {
		t.Fatalf("expected two instance summaries")
	}
}
