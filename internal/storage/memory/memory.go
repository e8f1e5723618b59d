// Package memory provides an in-memory Store used by tests and local runs.
// It mirrors the upsert semantics of the Postgres store exactly.
package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"grantstream/internal/model"
	"grantstream/internal/storage"
)

// Store keeps the whole projection in process memory.
type Store struct {
	mu          sync.RWMutex
	instances   map[string]model.Instance      // keyed by instance id {chainId}-{address}
	byAddress   map[string]string              // instance address -> instance id
	states      map[string]model.InstanceState // keyed by instance address
	members     map[string]model.Member        // keyed by {instance}-{member}
	admins      map[string]model.Admin         // keyed by {instance}-{admin}
	payouts     map[string]model.Payout        // keyed by {txHash}-{logIndex}
	withdrawals map[string]model.WithdrawalRequest
	watermarks  map[uint64]uint64
}

// New builds an empty in-memory store.
func New() *Store {
	return &Store{
		instances:   make(map[string]model.Instance),
		byAddress:   make(map[string]string),
		states:      make(map[string]model.InstanceState),
		members:     make(map[string]model.Member),
		admins:      make(map[string]model.Admin),
		payouts:     make(map[string]model.Payout),
		withdrawals: make(map[string]model.WithdrawalRequest),
		watermarks:  make(map[uint64]uint64),
	}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) InsertInstance(ctx context.Context, instance model.Instance) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[instance.ID]; ok {
		return false, nil
	}
	s.instances[instance.ID] = instance
	s.byAddress[instance.Address] = instance.ID
	return true, nil
}

func (s *Store) UpsertInstanceState(ctx context.Context, state model.InstanceState) error {
	s.mu.Lock()
	s.states[state.InstanceAddress] = state
	s.mu.Unlock()
	return nil
}

func (s *Store) patchState(instanceAddress string, ts uint64, apply func(*model.InstanceState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[instanceAddress]
	if !ok {
		state = model.DefaultInstanceState(instanceAddress, ts)
	}
	apply(&state)
	state.NeedsConfirmation = false
	state.UpdatedAt = ts
	s.states[instanceAddress] = state
}

func (s *Store) SetInstanceLocked(ctx context.Context, instanceAddress string, locked bool, ts uint64) error {
	s.patchState(instanceAddress, ts, func(state *model.InstanceState) { state.Locked = locked })
	return nil
}

func (s *Store) SetInstanceApprovalDefault(ctx context.Context, instanceAddress string, required bool, ts uint64) error {
	s.patchState(instanceAddress, ts, func(state *model.InstanceState) { state.RequiresApproval = required })
	return nil
}

func (s *Store) SetInstanceApplicationsOpen(ctx context.Context, instanceAddress string, open bool, ts uint64) error {
	s.patchState(instanceAddress, ts, func(state *model.InstanceState) { state.ApplicationsOpen = open })
	return nil
}

func (s *Store) UpsertMember(ctx context.Context, member model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[member.ID]
	if !ok {
		s.members[member.ID] = member
		return nil
	}

	// Cap updates never touch paid, the approval override, or the original
	// enrollment metadata.
	existing.Cap = member.Cap
	existing.IsActive = member.IsActive
	existing.UpdatedAt = member.UpdatedAt
	s.members[member.ID] = existing
	return nil
}

func (s *Store) SetMemberApproval(ctx context.Context, instanceAddress, memberAddress string, required bool, ts uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := model.MemberKey(instanceAddress, memberAddress)
	member, ok := s.members[id]
	if !ok {
		return false, nil
	}
	member.RequiresApproval = required
	member.UpdatedAt = ts
	s.members[id] = member
	return true, nil
}

func (s *Store) UpsertAdmin(ctx context.Context, admin model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.admins[admin.ID]
	if !ok {
		s.admins[admin.ID] = admin
		return nil
	}
	existing.IsActive = admin.IsActive
	existing.UpdatedAt = admin.UpdatedAt
	s.admins[admin.ID] = existing
	return nil
}

func (s *Store) ApplyPayout(ctx context.Context, payout model.Payout) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payouts[payout.ID]; ok {
		return false, nil
	}
	s.payouts[payout.ID] = payout

	memberID := model.MemberKey(payout.InstanceAddress, payout.Member)
	if member, ok := s.members[memberID]; ok {
		paid, err := addAmounts(member.Paid, payout.Amount)
		if err != nil {
			return false, err
		}
		member.Paid = paid
		member.UpdatedAt = payout.Timestamp
		s.members[memberID] = member
	}
	return true, nil
}

func (s *Store) InsertWithdrawal(ctx context.Context, request model.WithdrawalRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.withdrawals[request.ID]; ok {
		return false, nil
	}
	s.withdrawals[request.ID] = request
	return true, nil
}

func (s *Store) TransitionWithdrawal(ctx context.Context, id string, from, to model.WithdrawalStatus, ts uint64) (storage.TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.withdrawals[id]
	if !ok {
		return storage.TransitionResult{}, nil
	}
	if request.Status != from {
		return storage.TransitionResult{Found: true, Status: request.Status}, nil
	}
	request.Status = to
	request.LastUpdated = ts
	s.withdrawals[id] = request
	return storage.TransitionResult{Applied: true, Found: true, Status: to}, nil
}

func (s *Store) LoadWatermark(ctx context.Context, chainID uint64) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.watermarks[chainID]
	return block, ok, nil
}

func (s *Store) SaveWatermark(ctx context.Context, chainID uint64, block uint64) error {
	s.mu.Lock()
	s.watermarks[chainID] = block
	s.mu.Unlock()
	return nil
}

func (s *Store) ListInstances(ctx context.Context, filter storage.InstanceFilter) ([]model.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(filter.Name)
	out := make([]model.Instance, 0, len(s.instances))
	for _, instance := range s.instances {
		if filter.ChainID != 0 && instance.ChainID != filter.ChainID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(instance.Name), needle) {
			continue
		}
		out = append(out, instance)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChainID != out[j].ChainID {
			return out[i].ChainID < out[j].ChainID
		}
		return out[i].CreatedBlock < out[j].CreatedBlock
	})
	return out, nil
}

func (s *Store) GetInstance(ctx context.Context, address string) (*model.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[model.NormalizeAddress(address)]
	if !ok {
		return nil, nil
	}
	instance := s.instances[id]
	return &instance, nil
}

func (s *Store) GetInstanceState(ctx context.Context, address string) (*model.InstanceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[model.NormalizeAddress(address)]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *Store) ListInstanceAddresses(ctx context.Context, chainID uint64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0)
	for _, instance := range s.instances {
		if instance.ChainID == chainID {
			out = append(out, instance.Address)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListMembers(ctx context.Context, instanceAddress string, activeOnly bool) ([]model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instanceAddress = model.NormalizeAddress(instanceAddress)
	out := make([]model.Member, 0)
	for _, member := range s.members {
		if member.InstanceAddress != instanceAddress {
			continue
		}
		if activeOnly && !member.IsActive {
			continue
		}
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *Store) ListAdmins(ctx context.Context, instanceAddress string, activeOnly bool) ([]model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instanceAddress = model.NormalizeAddress(instanceAddress)
	out := make([]model.Admin, 0)
	for _, admin := range s.admins {
		if admin.InstanceAddress != instanceAddress {
			continue
		}
		if activeOnly && !admin.IsActive {
			continue
		}
		out = append(out, admin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *Store) ListPayouts(ctx context.Context, instanceAddress, memberAddress string) ([]model.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instanceAddress = model.NormalizeAddress(instanceAddress)
	memberAddress = model.NormalizeAddress(memberAddress)
	out := make([]model.Payout, 0)
	for _, payout := range s.payouts {
		if payout.InstanceAddress != instanceAddress {
			continue
		}
		if memberAddress != "" && payout.Member != memberAddress {
			continue
		}
		out = append(out, payout)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber > out[j].BlockNumber
		}
		return out[i].LogIndex > out[j].LogIndex
	})
	return out, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, instanceAddress, memberAddress string) ([]model.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instanceAddress = model.NormalizeAddress(instanceAddress)
	memberAddress = model.NormalizeAddress(memberAddress)
	out := make([]model.WithdrawalRequest, 0)
	for _, request := range s.withdrawals {
		if request.InstanceAddress != instanceAddress {
			continue
		}
		if memberAddress != "" && request.Member != memberAddress {
			continue
		}
		out = append(out, request)
	}
	sortWithdrawals(out)
	return out, nil
}

func (s *Store) ListPendingWithdrawals(ctx context.Context, instanceAddresses []string) ([]model.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(instanceAddresses))
	for _, address := range instanceAddresses {
		wanted[model.NormalizeAddress(address)] = struct{}{}
	}

	out := make([]model.WithdrawalRequest, 0)
	for _, request := range s.withdrawals {
		if request.Status != model.WithdrawalPending {
			continue
		}
		if _, ok := wanted[request.InstanceAddress]; !ok {
			continue
		}
		out = append(out, request)
	}
	sortWithdrawals(out)
	return out, nil
}

func (s *Store) ActiveRoles(ctx context.Context, address string) (storage.RoleAddresses, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	address = model.NormalizeAddress(address)
	roles := storage.RoleAddresses{}
	for _, admin := range s.admins {
		if admin.Address == address && admin.IsActive {
			roles.AdminOf = append(roles.AdminOf, admin.InstanceAddress)
		}
	}
	for _, member := range s.members {
		if member.Address == address && member.IsActive {
			roles.MemberOf = append(roles.MemberOf, member.InstanceAddress)
		}
	}
	sort.Strings(roles.AdminOf)
	sort.Strings(roles.MemberOf)
	return roles, nil
}

func (s *Store) Analytics(ctx context.Context) (*model.Analytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type instanceAgg struct {
		summary model.InstanceSummary
		paid    *big.Int
	}

	byInstance := make(map[string]*instanceAgg)
	for _, instance := range s.instances {
		byInstance[instance.Address] = &instanceAgg{
			summary: model.InstanceSummary{
				ChainID:         instance.ChainID,
				InstanceAddress: instance.Address,
				Name:            instance.Name,
			},
			paid: big.NewInt(0),
		}
	}

	for _, member := range s.members {
		agg, ok := byInstance[member.InstanceAddress]
		if !ok {
			continue
		}
		agg.summary.MemberCount++
		if member.IsActive {
			agg.summary.ActiveMemberCount++
		}
	}

	for _, payout := range s.payouts {
		agg, ok := byInstance[payout.InstanceAddress]
		if !ok {
			continue
		}
		amount, err := parseAmount(payout.Amount)
		if err != nil {
			return nil, err
		}
		agg.summary.PayoutCount++
		agg.paid.Add(agg.paid, amount)
	}

	chains := make(map[uint64]*model.ChainTotals)
	chainPaid := make(map[uint64]*big.Int)
	for _, instance := range s.instances {
		totals, ok := chains[instance.ChainID]
		if !ok {
			totals = &model.ChainTotals{ChainID: instance.ChainID, ChainName: instance.ChainName}
			chains[instance.ChainID] = totals
			chainPaid[instance.ChainID] = big.NewInt(0)
		}
		totals.InstanceCount++

		agg := byInstance[instance.Address]
		totals.MemberCount += agg.summary.MemberCount
		totals.ActiveMemberCount += agg.summary.ActiveMemberCount
		chainPaid[instance.ChainID].Add(chainPaid[instance.ChainID], agg.paid)
	}

	analytics := &model.Analytics{}
	for chainID, totals := range chains {
		totals.TotalPaid = chainPaid[chainID].String()
		analytics.Chains = append(analytics.Chains, *totals)
	}
	sort.Slice(analytics.Chains, func(i, j int) bool {
		return analytics.Chains[i].ChainID < analytics.Chains[j].ChainID
	})

	for _, agg := range byInstance {
		agg.summary.TotalPaid = agg.paid.String()
		analytics.Instances = append(analytics.Instances, agg.summary)
	}
	sort.Slice(analytics.Instances, func(i, j int) bool {
		if analytics.Instances[i].ChainID != analytics.Instances[j].ChainID {
			return analytics.Instances[i].ChainID < analytics.Instances[j].ChainID
		}
		return analytics.Instances[i].InstanceAddress < analytics.Instances[j].InstanceAddress
	})

	return analytics, nil
}

func sortWithdrawals(requests []model.WithdrawalRequest) {
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].BlockNumber != requests[j].BlockNumber {
			return requests[i].BlockNumber > requests[j].BlockNumber
		}
		return requests[i].RequestID > requests[j].RequestID
	})
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}

func addAmounts(a, b string) (string, error) {
	left, err := parseAmount(a)
	if err != nil {
		return "", err
	}
	right, err := parseAmount(b)
	if err != nil {
		return "", err
	}
	return left.Add(left, right).String(), nil
}
