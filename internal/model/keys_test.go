package model

import "testing"

func TestKeysAreLowerCased(t *testing.T) {
	if got := NormalizeAddress(" 0xABCDef01 "); got != "0xabcdef01" {
		t.Fatalf("normalize mismatch: %s", got)
	}

	if got := InstanceKey(56, "0xAAAA"); got != "56-0xaaaa" {
		t.Fatalf("instance key mismatch: %s", got)
	}
	if got := MemberKey("0xAAAA", "0xBBBB"); got != "0xaaaa-0xbbbb" {
		t.Fatalf("member key mismatch: %s", got)
	}
	if got := PayoutKey("0xTX", 3); got != "0xtx-3" {
		t.Fatalf("payout key mismatch: %s", got)
	}
	if got := WithdrawalKey("0xAAAA", "0xBBBB", 7); got != "0xaaaa-0xbbbb-7" {
		t.Fatalf("withdrawal key mismatch: %s", got)
	}
}

func TestKeyCaseInsensitiveIdentity(t *testing.T) {
	a := MemberKey("0xAbCd", "0x1234")
	b := MemberKey("0xabcd", "0x1234")
	if a != b {
		t.Fatalf("same identity produced different keys: %s != %s", a, b)
	}
}
