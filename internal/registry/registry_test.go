package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var factory = common.HexToAddress("0x9999999999999999999999999999999999999999")

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for empty chain list")
	}

	chains := []Chain{
		{ChainID: 1, RPCURL: "http://localhost:8545", Factories: []common.Address{factory}},
		{ChainID: 1, RPCURL: "http://localhost:8546", Factories: []common.Address{factory}},
	}
	if _, err := New(chains); err == nil {
		t.Fatalf("expected error for duplicate chain id")
	}

	if _, err := New([]Chain{{ChainID: 1, Factories: []common.Address{factory}}}); err == nil {
		t.Fatalf("expected error for missing rpc url")
	}

	if _, err := New([]Chain{{ChainID: 1, RPCURL: "http://localhost:8545"}}); err == nil {
		t.Fatalf("expected error for missing factories")
	}
}

func TestWatchSetGrowth(t *testing.T) {
	reg, err := New([]Chain{{ChainID: 1, RPCURL: "http://localhost:8545", Factories: []common.Address{factory}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	watchSet, err := reg.WatchSet(1)
	if err != nil {
		t.Fatalf("watch set: %v", err)
	}
	if len(watchSet) != 1 || watchSet[0] != factory {
		t.Fatalf("initial watch set must contain only factories: %+v", watchSet)
	}

	instance := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if err := reg.AddInstance(1, instance); err != nil {
		t.Fatalf("add instance: %v", err)
	}
	// Duplicate additions are absorbed.
	if err := reg.AddInstance(1, instance); err != nil {
		t.Fatalf("re-add instance: %v", err)
	}

	watchSet, _ = reg.WatchSet(1)
	if len(watchSet) != 2 {
		t.Fatalf("watch set mismatch: %+v", watchSet)
	}

	if err := reg.AddInstance(2, instance); err == nil {
		t.Fatalf("expected error for unsupported chain")
	}
	if _, err := reg.WatchSet(2); err == nil {
		t.Fatalf("expected error for unsupported chain")
	}
}

func TestIsFactory(t *testing.T) {
	reg, err := New([]Chain{{ChainID: 1, RPCURL: "http://localhost:8545", Factories: []common.Address{factory}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if !reg.IsFactory(1, factory) {
		t.Fatalf("factory not recognized")
	}
	if reg.IsFactory(1, common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")) {
		t.Fatalf("non-factory recognized")
	}
	if reg.IsFactory(2, factory) {
		t.Fatalf("unsupported chain recognized")
	}
}
