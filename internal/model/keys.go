package model

import (
	"fmt"
	"strings"
)

// NormalizeAddress lower-cases a hex address so identity comparisons are
// byte-exact across the whole pipeline.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// InstanceKey builds the composite instance identity {chainId}-{address}.
func InstanceKey(chainID uint64, address string) string {
	return fmt.Sprintf("%d-%s", chainID, NormalizeAddress(address))
}

// MemberKey builds the composite member identity {instance}-{member}.
// Also used for admins.
func MemberKey(instanceAddress, memberAddress string) string {
	return fmt.Sprintf("%s-%s", NormalizeAddress(instanceAddress), NormalizeAddress(memberAddress))
}

// PayoutKey builds the composite payout identity {txHash}-{logIndex}.
func PayoutKey(txHash string, logIndex uint64) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(txHash), logIndex)
}

// WithdrawalKey builds the composite identity {instance}-{member}-{requestId}.
func WithdrawalKey(instanceAddress, memberAddress string, requestID uint64) string {
	return fmt.Sprintf("%s-%s-%d", NormalizeAddress(instanceAddress), NormalizeAddress(memberAddress), requestID)
}
