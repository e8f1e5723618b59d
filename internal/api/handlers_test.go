package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"grantstream/internal/cache"
	"grantstream/internal/model"
	"grantstream/internal/query"
	"grantstream/internal/registry"
	"grantstream/internal/storage/memory"
)

const (
	instanceAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	adminAddr    = "0x1111111111111111111111111111111111111111"
	builderAddr  = "0x2222222222222222222222222222222222222222"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	reg, err := registry.New([]registry.Chain{{
		ChainID:   56,
		Name:      "bsc",
		RPCURL:    "http://localhost:8545",
		Factories: []common.Address{common.HexToAddress("0x9999999999999999999999999999999999999999")},
	}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	store := memory.New()
	ctx := context.Background()
	if _, err := store.InsertInstance(ctx, model.Instance{
		ID: "56-" + instanceAddr, ChainID: 56, ChainName: "bsc", Address: instanceAddr,
		Admin: adminAddr, Name: "design grants", CreatedAt: 100, CreatedBlock: 10,
	}); err != nil {
		t.Fatalf("seed instance: %v", err)
	}
	if err := store.UpsertMember(ctx, model.Member{
		ID: model.MemberKey(instanceAddr, builderAddr), InstanceAddress: instanceAddr,
		Address: builderAddr, Cap: "1000", Paid: "0", IsActive: true,
	}); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	service := query.New(store, reg, nil)
	server := NewServer(":0", service, cache.New(time.Minute, 4), nil, nil)
	return server, store
}

func doGet(t *testing.T, server *Server, path string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	var body apiResponse
	if rec.Code == http.StatusOK || rec.Code == http.StatusBadRequest || rec.Code == http.StatusNotFound {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec, body
}

func TestListInstancesEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doGet(t, server, "/instances?chainId=56&address="+builderAddr)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(body.Data)
	var views []query.InstanceView
	if err := json.Unmarshal(raw, &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	if len(views) != 1 || views[0].Address != instanceAddr {
		t.Fatalf("views mismatch: %+v", views)
	}
	if views[0].Role != query.RoleBuilder {
		t.Fatalf("role mismatch: %q", views[0].Role)
	}
}

func TestListInstancesBadChain(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doGet(t, server, "/instances?chainId=999")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown chain, got %d", rec.Code)
	}

	rec, _ = doGet(t, server, "/instances?chainId=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed chain, got %d", rec.Code)
	}
}

func TestInstanceDetailEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doGet(t, server, "/instance/"+instanceAddr)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(body.Data)
	var detail query.InstanceDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Instance.Address != instanceAddr || len(detail.Members) != 1 {
		t.Fatalf("detail mismatch: %+v", detail)
	}

	rec, _ = doGet(t, server, "/instance/0xdddddddddddddddddddddddddddddddddddddddd")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown instance, got %d", rec.Code)
	}
}

func TestWithdrawalsEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()

	if _, err := store.InsertWithdrawal(ctx, model.WithdrawalRequest{
		ID: model.WithdrawalKey(instanceAddr, builderAddr, 1), InstanceAddress: instanceAddr,
		Member: builderAddr, RequestID: 1, Amount: "50", Status: model.WithdrawalPending, BlockNumber: 12,
	}); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	rec, body := doGet(t, server, "/instance/"+instanceAddr+"/withdrawals?member="+builderAddr)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(body.Data)
	var history query.WithdrawalHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Requests) != 1 || history.Requests[0].RequestID != 1 {
		t.Fatalf("history mismatch: %+v", history)
	}
}

func TestUserInstancesEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doGet(t, server, "/user/"+builderAddr+"/instances")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(body.Data)
	var views []query.InstanceView
	if err := json.Unmarshal(raw, &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	if len(views) != 1 || views[0].Role != query.RoleBuilder {
		t.Fatalf("views mismatch: %+v", views)
	}
}

func TestPendingRequestsEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()

	if _, err := store.InsertWithdrawal(ctx, model.WithdrawalRequest{
		ID: model.WithdrawalKey(instanceAddr, builderAddr, 2), InstanceAddress: instanceAddr,
		Member: builderAddr, RequestID: 2, Amount: "75", Status: model.WithdrawalPending, BlockNumber: 14,
	}); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	rec, body := doGet(t, server, "/admin/"+adminAddr+"/pending-requests")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(body.Data)
	var pending []model.WithdrawalRequest
	if err := json.Unmarshal(raw, &pending); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if len(pending) != 1 || pending[0].RequestID != 2 {
		t.Fatalf("pending mismatch: %+v", pending)
	}
}

func TestAnalyticsEndpointCaches(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()

	rec, body := doGet(t, server, "/analytics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(body.Data)
	var analytics model.Analytics
	if err := json.Unmarshal(raw, &analytics); err != nil {
		t.Fatalf("decode analytics: %v", err)
	}
	if len(analytics.Chains) != 1 || analytics.Chains[0].InstanceCount != 1 {
		t.Fatalf("analytics mismatch: %+v", analytics)
	}

	// A write after the first read is invisible until the TTL expires.
	if _, err := store.InsertInstance(ctx, model.Instance{
		ID: "56-0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", ChainID: 56, ChainName: "bsc",
		Address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Admin: adminAddr, CreatedBlock: 20,
	}); err != nil {
		t.Fatalf("seed instance: %v", err)
	}

	_, body = doGet(t, server, "/analytics")
	raw, _ = json.Marshal(body.Data)
	if err := json.Unmarshal(raw, &analytics); err != nil {
		t.Fatalf("decode analytics: %v", err)
	}
	if analytics.Chains[0].InstanceCount != 1 {
		t.Fatalf("cached response bypassed: %+v", analytics.Chains)
	}
}

func TestHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doGet(t, server, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}

	rec, _ = doGet(t, server, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status %d", rec.Code)
	}
}
