// Package query is the read side over the materialized store: role-aware
// listings, instance detail, withdrawal history, and the cross-chain
// analytics rollup.
package query

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"grantstream/internal/model"
	"grantstream/internal/registry"
	"grantstream/internal/storage"
)

// Role tags the caller's relationship to an instance. ADMIN wins when an
// address holds both roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleBuilder Role = "BUILDER"
)

// ErrUnsupportedChain marks a chainId filter outside the configured set. The
// API maps it to a client error.
type ErrUnsupportedChain struct {
	ChainID uint64
}

func (e ErrUnsupportedChain) Error() string {
	return fmt.Sprintf("unsupported chain id: %d", e.ChainID)
}

// InstanceView is an instance with the caller's role, when one applies.
type InstanceView struct {
	model.Instance
	Role Role `json:"role,omitempty"`
}

// InstanceDetail is the full read of one instance: identity, active
// participants, and current configuration.
type InstanceDetail struct {
	Instance model.Instance       `json:"instance"`
	Members  []model.Member       `json:"members"`
	Admins   []model.Admin        `json:"admins"`
	State    *model.InstanceState `json:"configuration_state"`
}

// WithdrawalHistory groups completed payouts and withdrawal requests for one
// instance, both newest first.
type WithdrawalHistory struct {
	Payouts  []model.Payout            `json:"payouts"`
	Requests []model.WithdrawalRequest `json:"requests"`
}

// ListFilter narrows the instance listing. Address, when set, annotates each
// instance with that caller's role.
type ListFilter struct {
	ChainID uint64
	Name    string
	Address string
}

// Service answers read queries against the store.
type Service struct {
	store    storage.Store
	registry *registry.Registry
	logger   *zap.Logger
}

// New builds a query service.
func New(store storage.Store, reg *registry.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, registry: reg, logger: logger}
}

// ListInstances returns instances matching the filter, role-annotated when a
// caller address is supplied.
func (s *Service) ListInstances(ctx context.Context, filter ListFilter) ([]InstanceView, error) {
	if filter.ChainID != 0 && !s.registry.IsSupported(filter.ChainID) {
		return nil, ErrUnsupportedChain{ChainID: filter.ChainID}
	}

	instances, err := s.store.ListInstances(ctx, storage.InstanceFilter{ChainID: filter.ChainID, Name: filter.Name})
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}

	roles := map[string]Role{}
	caller := model.NormalizeAddress(filter.Address)
	if caller != "" {
		roles, err = s.rolesByInstance(ctx, caller)
		if err != nil {
			return nil, err
		}
	}

	views := make([]InstanceView, 0, len(instances))
	for _, instance := range instances {
		view := InstanceView{Instance: instance}
		if role, ok := roles[instance.Address]; ok {
			view.Role = role
		}
		views = append(views, view)
	}
	return views, nil
}

// GetInstanceDetail returns the instance with its active members, active
// admins, and configuration state, or nil when the address is unknown.
func (s *Service) GetInstanceDetail(ctx context.Context, address string) (*InstanceDetail, error) {
	address = model.NormalizeAddress(address)

	instance, err := s.store.GetInstance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get instance %s: %w", address, err)
	}
	if instance == nil {
		return nil, nil
	}

	members, err := s.store.ListMembers(ctx, address, true)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	admins, err := s.store.ListAdmins(ctx, address, true)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	state, err := s.store.GetInstanceState(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get instance state: %w", err)
	}

	return &InstanceDetail{
		Instance: *instance,
		Members:  members,
		Admins:   admins,
		State:    state,
	}, nil
}

// Withdrawals returns the payout and withdrawal-request history for one
// instance, optionally narrowed to one member. Nil when the instance is
// unknown.
func (s *Service) Withdrawals(ctx context.Context, instanceAddress, memberAddress string) (*WithdrawalHistory, error) {
	instanceAddress = model.NormalizeAddress(instanceAddress)
	memberAddress = model.NormalizeAddress(memberAddress)

	instance, err := s.store.GetInstance(ctx, instanceAddress)
	if err != nil {
		return nil, fmt.Errorf("get instance %s: %w", instanceAddress, err)
	}
	if instance == nil {
		return nil, nil
	}

	payouts, err := s.store.ListPayouts(ctx, instanceAddress, memberAddress)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	requests, err := s.store.ListWithdrawals(ctx, instanceAddress, memberAddress)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}

	return &WithdrawalHistory{Payouts: payouts, Requests: requests}, nil
}

// UserInstances returns every instance where the address holds an active
// role, tagged with that role.
func (s *Service) UserInstances(ctx context.Context, address string) ([]InstanceView, error) {
	address = model.NormalizeAddress(address)
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	roles, err := s.rolesByInstance(ctx, address)
	if err != nil {
		return nil, err
	}

	views := make([]InstanceView, 0, len(roles))
	for instanceAddress, role := range roles {
		instance, err := s.store.GetInstance(ctx, instanceAddress)
		if err != nil {
			return nil, fmt.Errorf("get instance %s: %w", instanceAddress, err)
		}
		if instance == nil {
			// Role row without an instance row; discovery writes the instance
			// before any membership event can reduce, so this is unexpected.
			s.logger.Warn("role row for unknown instance", zap.String("instance", instanceAddress))
			continue
		}
		views = append(views, InstanceView{Instance: *instance, Role: role})
	}

	sortViews(views)
	return views, nil
}

// PendingRequests returns pending withdrawal requests across every instance
// the address administers, newest first.
func (s *Service) PendingRequests(ctx context.Context, address string) ([]model.WithdrawalRequest, error) {
	address = model.NormalizeAddress(address)
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	administered, err := s.administeredInstances(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(administered) == 0 {
		return []model.WithdrawalRequest{}, nil
	}

	pending, err := s.store.ListPendingWithdrawals(ctx, administered)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	return pending, nil
}

// Analytics computes the cross-chain rollup.
func (s *Service) Analytics(ctx context.Context) (*model.Analytics, error) {
	analytics, err := s.store.Analytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	return analytics, nil
}

// rolesByInstance maps instance address to the caller's role there. Active
// admin rows and the creation-time primary admin both grant ADMIN; an active
// member row grants BUILDER unless ADMIN already applies.
func (s *Service) rolesByInstance(ctx context.Context, address string) (map[string]Role, error) {
	roles, err := s.store.ActiveRoles(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("active roles %s: %w", address, err)
	}

	out := make(map[string]Role, len(roles.AdminOf)+len(roles.MemberOf))
	for _, instance := range roles.AdminOf {
		out[instance] = RoleAdmin
	}

	created, err := s.store.ListInstances(ctx, storage.InstanceFilter{})
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	for _, instance := range created {
		if instance.Admin == address {
			out[instance.Address] = RoleAdmin
		}
	}

	for _, instance := range roles.MemberOf {
		if _, ok := out[instance]; !ok {
			out[instance] = RoleBuilder
		}
	}
	return out, nil
}

// administeredInstances returns the addresses of instances where the address
// is an active admin or the primary admin.
func (s *Service) administeredInstances(ctx context.Context, address string) ([]string, error) {
	roles, err := s.rolesByInstance(ctx, address)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(roles))
	for instance, role := range roles {
		if role == RoleAdmin {
			out = append(out, instance)
		}
	}
	return out, nil
}

// sortViews orders newest first, matching the listing order of the store.
func sortViews(views []InstanceView) {
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedBlock != views[j].CreatedBlock {
			return views[i].CreatedBlock > views[j].CreatedBlock
		}
		return views[i].ID < views[j].ID
	})
}
