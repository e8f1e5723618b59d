// Package postgres implements the materialized store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"grantstream/internal/model"
	"grantstream/internal/storage"
)

// Store provides Postgres persistence for the projection.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks store reachability, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) InsertInstance(ctx context.Context, instance model.Instance) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO instances (
			id, chain_id, chain_name, address, admin, name, description,
			created_at, created_tx, created_block
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`,
		instance.ID,
		int64(instance.ChainID),
		instance.ChainName,
		instance.Address,
		instance.Admin,
		instance.Name,
		instance.Description,
		int64(instance.CreatedAt),
		instance.CreatedTx,
		int64(instance.CreatedBlock),
	)
	if err != nil {
		return false, fmt.Errorf("insert instance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpsertInstanceState(ctx context.Context, state model.InstanceState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO instance_states (
			instance_address, token_mode, token_address, token_symbol, token_decimals,
			one_time_payout, cycle_seconds, locked, requires_approval,
			applications_open, needs_confirmation, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (instance_address) DO UPDATE SET
			token_mode = EXCLUDED.token_mode,
			token_address = EXCLUDED.token_address,
			token_symbol = EXCLUDED.token_symbol,
			token_decimals = EXCLUDED.token_decimals,
			one_time_payout = EXCLUDED.one_time_payout,
			cycle_seconds = EXCLUDED.cycle_seconds,
			locked = EXCLUDED.locked,
			requires_approval = EXCLUDED.requires_approval,
			applications_open = EXCLUDED.applications_open,
			needs_confirmation = EXCLUDED.needs_confirmation,
			updated_at = EXCLUDED.updated_at
	`,
		state.InstanceAddress,
		state.TokenMode,
		state.TokenAddress,
		state.TokenSymbol,
		int16(state.TokenDecimals),
		state.OneTimePayout,
		int64(state.CycleSeconds),
		state.Locked,
		state.RequiresApproval,
		state.ApplicationsOpen,
		state.NeedsConfirmation,
		int64(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert instance state: %w", err)
	}
	return nil
}

func (s *Store) patchState(ctx context.Context, instanceAddress, column string, value bool, ts uint64) error {
	// The column name comes from a fixed caller-side set, never user input.
	query := fmt.Sprintf(`
		INSERT INTO instance_states (instance_address, token_decimals, %s, needs_confirmation, updated_at)
		VALUES ($1, 18, $2, false, $3)
		ON CONFLICT (instance_address) DO UPDATE SET
			%s = EXCLUDED.%s,
			needs_confirmation = false,
			updated_at = EXCLUDED.updated_at
	`, column, column, column)
	_, err := s.pool.Exec(ctx, query, instanceAddress, value, int64(ts))
	if err != nil {
		return fmt.Errorf("patch %s: %w", column, err)
	}
	return nil
}

func (s *Store) SetInstanceLocked(ctx context.Context, instanceAddress string, locked bool, ts uint64) error {
	return s.patchState(ctx, instanceAddress, "locked", locked, ts)
}

func (s *Store) SetInstanceApprovalDefault(ctx context.Context, instanceAddress string, required bool, ts uint64) error {
	return s.patchState(ctx, instanceAddress, "requires_approval", required, ts)
}

func (s *Store) SetInstanceApplicationsOpen(ctx context.Context, instanceAddress string, open bool, ts uint64) error {
	return s.patchState(ctx, instanceAddress, "applications_open", open, ts)
}

func (s *Store) UpsertMember(ctx context.Context, member model.Member) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO members (
			id, instance_address, address, cap_amount, paid, requires_approval,
			joined_at, joined_block, is_active, updated_at
		) VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			cap_amount = EXCLUDED.cap_amount,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		member.ID,
		member.InstanceAddress,
		member.Address,
		member.Cap,
		member.Paid,
		member.RequiresApproval,
		int64(member.JoinedAt),
		int64(member.JoinedBlock),
		member.IsActive,
		int64(member.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

func (s *Store) SetMemberApproval(ctx context.Context, instanceAddress, memberAddress string, required bool, ts uint64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE members SET requires_approval = $2, updated_at = $3 WHERE id = $1
	`, model.MemberKey(instanceAddress, memberAddress), required, int64(ts))
	if err != nil {
		return false, fmt.Errorf("set member approval: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpsertAdmin(ctx context.Context, admin model.Admin) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admins (
			id, instance_address, address, joined_at, joined_block, is_active, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		admin.ID,
		admin.InstanceAddress,
		admin.Address,
		int64(admin.JoinedAt),
		int64(admin.JoinedBlock),
		admin.IsActive,
		int64(admin.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

// ApplyPayout inserts the payout and bumps the member's cumulative paid in
// one transaction. The increment only happens when the insert lands, so
// duplicate delivery cannot double-count.
func (s *Store) ApplyPayout(ctx context.Context, payout model.Payout) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin payout tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO payouts (
			id, instance_address, member, amount, reason, ts, tx_hash, log_index, block_number
		) VALUES ($1,$2,$3,$4::numeric,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING
	`,
		payout.ID,
		payout.InstanceAddress,
		payout.Member,
		payout.Amount,
		payout.Reason,
		int64(payout.Timestamp),
		payout.TxHash,
		int64(payout.LogIndex),
		int64(payout.BlockNumber),
	)
	if err != nil {
		return false, fmt.Errorf("insert payout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE members SET paid = paid + $2::numeric, updated_at = $3 WHERE id = $1
	`, model.MemberKey(payout.InstanceAddress, payout.Member), payout.Amount, int64(payout.Timestamp))
	if err != nil {
		return false, fmt.Errorf("accumulate paid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit payout tx: %w", err)
	}
	return true, nil
}

func (s *Store) InsertWithdrawal(ctx context.Context, request model.WithdrawalRequest) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO withdrawal_requests (
			id, instance_address, member, request_id, amount, reason, status,
			requested_at, last_updated, block_number
		) VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`,
		request.ID,
		request.InstanceAddress,
		request.Member,
		int64(request.RequestID),
		request.Amount,
		request.Reason,
		string(request.Status),
		int64(request.RequestedAt),
		int64(request.LastUpdated),
		int64(request.BlockNumber),
	)
	if err != nil {
		return false, fmt.Errorf("insert withdrawal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) TransitionWithdrawal(ctx context.Context, id string, from, to model.WithdrawalStatus, ts uint64) (storage.TransitionResult, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE withdrawal_requests SET status = $3, last_updated = $4
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), int64(ts))
	if err != nil {
		return storage.TransitionResult{}, fmt.Errorf("transition withdrawal: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return storage.TransitionResult{Applied: true, Found: true, Status: to}, nil
	}

	var status string
	row := s.pool.QueryRow(ctx, `SELECT status FROM withdrawal_requests WHERE id = $1`, id)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.TransitionResult{}, nil
		}
		return storage.TransitionResult{}, fmt.Errorf("read withdrawal status: %w", err)
	}
	return storage.TransitionResult{Found: true, Status: model.WithdrawalStatus(status)}, nil
}

func (s *Store) LoadWatermark(ctx context.Context, chainID uint64) (uint64, bool, error) {
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE chain_id = $1`, int64(chainID))
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load watermark: %w", err)
	}
	return uint64(block), true, nil
}

func (s *Store) SaveWatermark(ctx context.Context, chainID uint64, block uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (chain_id, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (chain_id) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, int64(chainID), int64(block))
	if err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	return nil
}

func (s *Store) ListInstances(ctx context.Context, filter storage.InstanceFilter) ([]model.Instance, error) {
	query := `
		SELECT id, chain_id, chain_name, address, admin, name, description,
		       created_at, created_tx, created_block
		FROM instances
		WHERE ($1 = 0 OR chain_id = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY chain_id, created_block
	`
	rows, err := s.pool.Query(ctx, query, int64(filter.ChainID), filter.Name)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()
	return scanInstances(rows)
}

func (s *Store) GetInstance(ctx context.Context, address string) (*model.Instance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chain_id, chain_name, address, admin, name, description,
		       created_at, created_tx, created_block
		FROM instances WHERE address = $1
	`, model.NormalizeAddress(address))
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	defer rows.Close()

	instances, err := scanInstances(rows)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, nil
	}
	return &instances[0], nil
}

func (s *Store) GetInstanceState(ctx context.Context, address string) (*model.InstanceState, error) {
	var state model.InstanceState
	var decimals int16
	var cycle, updated int64
	row := s.pool.QueryRow(ctx, `
		SELECT instance_address, token_mode, token_address, token_symbol, token_decimals,
		       one_time_payout, cycle_seconds, locked, requires_approval,
		       applications_open, needs_confirmation, updated_at
		FROM instance_states WHERE instance_address = $1
	`, model.NormalizeAddress(address))
	err := row.Scan(
		&state.InstanceAddress,
		&state.TokenMode,
		&state.TokenAddress,
		&state.TokenSymbol,
		&decimals,
		&state.OneTimePayout,
		&cycle,
		&state.Locked,
		&state.RequiresApproval,
		&state.ApplicationsOpen,
		&state.NeedsConfirmation,
		&updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get instance state: %w", err)
	}
	state.TokenDecimals = uint8(decimals)
	state.CycleSeconds = uint64(cycle)
	state.UpdatedAt = uint64(updated)
	return &state, nil
}

func (s *Store) ListInstanceAddresses(ctx context.Context, chainID uint64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM instances WHERE chain_id = $1 ORDER BY address`, int64(chainID))
	if err != nil {
		return nil, fmt.Errorf("list instance addresses: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, err
		}
		out = append(out, address)
	}
	return out, rows.Err()
}

func (s *Store) ListMembers(ctx context.Context, instanceAddress string, activeOnly bool) ([]model.Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_address, address, cap_amount::text, paid::text, requires_approval,
		       joined_at, joined_block, is_active, updated_at
		FROM members
		WHERE instance_address = $1 AND ($2 = false OR is_active)
		ORDER BY address
	`, model.NormalizeAddress(instanceAddress), activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := make([]model.Member, 0)
	for rows.Next() {
		var member model.Member
		var joinedAt, joinedBlock, updatedAt int64
		if err := rows.Scan(
			&member.ID, &member.InstanceAddress, &member.Address,
			&member.Cap, &member.Paid, &member.RequiresApproval,
			&joinedAt, &joinedBlock, &member.IsActive, &updatedAt,
		); err != nil {
			return nil, err
		}
		member.JoinedAt = uint64(joinedAt)
		member.JoinedBlock = uint64(joinedBlock)
		member.UpdatedAt = uint64(updatedAt)
		out = append(out, member)
	}
	return out, rows.Err()
}

func (s *Store) ListAdmins(ctx context.Context, instanceAddress string, activeOnly bool) ([]model.Admin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_address, address, joined_at, joined_block, is_active, updated_at
		FROM admins
		WHERE instance_address = $1 AND ($2 = false OR is_active)
		ORDER BY address
	`, model.NormalizeAddress(instanceAddress), activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	out := make([]model.Admin, 0)
	for rows.Next() {
		var admin model.Admin
		var joinedAt, joinedBlock, updatedAt int64
		if err := rows.Scan(
			&admin.ID, &admin.InstanceAddress, &admin.Address,
			&joinedAt, &joinedBlock, &admin.IsActive, &updatedAt,
		); err != nil {
			return nil, err
		}
		admin.JoinedAt = uint64(joinedAt)
		admin.JoinedBlock = uint64(joinedBlock)
		admin.UpdatedAt = uint64(updatedAt)
		out = append(out, admin)
	}
	return out, rows.Err()
}

func (s *Store) ListPayouts(ctx context.Context, instanceAddress, memberAddress string) ([]model.Payout, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_address, member, amount::text, reason, ts, tx_hash, log_index, block_number
		FROM payouts
		WHERE instance_address = $1 AND ($2 = '' OR member = $2)
		ORDER BY block_number DESC, log_index DESC
	`, model.NormalizeAddress(instanceAddress), model.NormalizeAddress(memberAddress))
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	out := make([]model.Payout, 0)
	for rows.Next() {
		var payout model.Payout
		var ts, logIndex, blockNumber int64
		if err := rows.Scan(
			&payout.ID, &payout.InstanceAddress, &payout.Member,
			&payout.Amount, &payout.Reason, &ts, &payout.TxHash, &logIndex, &blockNumber,
		); err != nil {
			return nil, err
		}
		payout.Timestamp = uint64(ts)
		payout.LogIndex = uint64(logIndex)
		payout.BlockNumber = uint64(blockNumber)
		out = append(out, payout)
	}
	return out, rows.Err()
}

func (s *Store) ListWithdrawals(ctx context.Context, instanceAddress, memberAddress string) ([]model.WithdrawalRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_address, member, request_id, amount::text, reason, status,
		       requested_at, last_updated, block_number
		FROM withdrawal_requests
		WHERE instance_address = $1 AND ($2 = '' OR member = $2)
		ORDER BY block_number DESC, request_id DESC
	`, model.NormalizeAddress(instanceAddress), model.NormalizeAddress(memberAddress))
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

func (s *Store) ListPendingWithdrawals(ctx context.Context, instanceAddresses []string) ([]model.WithdrawalRequest, error) {
	if len(instanceAddresses) == 0 {
		return []model.WithdrawalRequest{}, nil
	}
	normalized := make([]string, 0, len(instanceAddresses))
	for _, address := range instanceAddresses {
		normalized = append(normalized, model.NormalizeAddress(address))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_address, member, request_id, amount::text, reason, status,
		       requested_at, last_updated, block_number
		FROM withdrawal_requests
		WHERE status = 'pending' AND instance_address = ANY($1)
		ORDER BY block_number DESC, request_id DESC
	`, normalized)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

func (s *Store) ActiveRoles(ctx context.Context, address string) (storage.RoleAddresses, error) {
	address = model.NormalizeAddress(address)
	roles := storage.RoleAddresses{}

	rows, err := s.pool.Query(ctx, `SELECT instance_address FROM admins WHERE address = $1 AND is_active ORDER BY instance_address`, address)
	if err != nil {
		return roles, fmt.Errorf("active admin roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var instance string
		if err := rows.Scan(&instance); err != nil {
			return roles, err
		}
		roles.AdminOf = append(roles.AdminOf, instance)
	}
	if err := rows.Err(); err != nil {
		return roles, err
	}

	rows, err = s.pool.Query(ctx, `SELECT instance_address FROM members WHERE address = $1 AND is_active ORDER BY instance_address`, address)
	if err != nil {
		return roles, fmt.Errorf("active member roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var instance string
		if err := rows.Scan(&instance); err != nil {
			return roles, err
		}
		roles.MemberOf = append(roles.MemberOf, instance)
	}
	return roles, rows.Err()
}

// Analytics streams per-instance rollups out of SQL and folds the chain
// totals in Go, so nothing derived is ever persisted.
func (s *Store) Analytics(ctx context.Context) (*model.Analytics, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.chain_id, i.chain_name, i.address, i.name,
		       COALESCE(m.member_count, 0),
		       COALESCE(m.active_count, 0),
		       COALESCE(p.payout_count, 0),
		       COALESCE(p.total_paid, '0')
		FROM instances i
		LEFT JOIN (
			SELECT instance_address,
			       COUNT(*) AS member_count,
			       COUNT(*) FILTER (WHERE is_active) AS active_count
			FROM members GROUP BY instance_address
		) m ON m.instance_address = i.address
		LEFT JOIN (
			SELECT instance_address,
			       COUNT(*) AS payout_count,
			       SUM(amount)::text AS total_paid
			FROM payouts GROUP BY instance_address
		) p ON p.instance_address = i.address
		ORDER BY i.chain_id, i.address
	`)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	defer rows.Close()

	analytics := &model.Analytics{}
	var totals *model.ChainTotals
	chainPaid := big.NewInt(0)

	flush := func() {
		if totals != nil {
			totals.TotalPaid = chainPaid.String()
			analytics.Chains = append(analytics.Chains, *totals)
		}
	}

	for rows.Next() {
		var chainID, memberCount, activeCount, payoutCount int64
		var chainName, address, name, totalPaid string
		if err := rows.Scan(&chainID, &chainName, &address, &name, &memberCount, &activeCount, &payoutCount, &totalPaid); err != nil {
			return nil, err
		}

		paid, ok := new(big.Int).SetString(totalPaid, 10)
		if !ok {
			return nil, fmt.Errorf("invalid total paid: %s", totalPaid)
		}

		if totals == nil || totals.ChainID != uint64(chainID) {
			flush()
			totals = &model.ChainTotals{ChainID: uint64(chainID), ChainName: chainName}
			chainPaid = big.NewInt(0)
		}
		totals.InstanceCount++
		totals.MemberCount += uint64(memberCount)
		totals.ActiveMemberCount += uint64(activeCount)
		chainPaid.Add(chainPaid, paid)

		analytics.Instances = append(analytics.Instances, model.InstanceSummary{
			ChainID:           uint64(chainID),
			InstanceAddress:   address,
			Name:              name,
			MemberCount:       uint64(memberCount),
			ActiveMemberCount: uint64(activeCount),
			PayoutCount:       uint64(payoutCount),
			TotalPaid:         paid.String(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	flush()

	return analytics, nil
}

func scanInstances(rows pgx.Rows) ([]model.Instance, error) {
	out := make([]model.Instance, 0)
	for rows.Next() {
		var instance model.Instance
		var chainID, createdAt, createdBlock int64
		if err := rows.Scan(
			&instance.ID, &chainID, &instance.ChainName, &instance.Address,
			&instance.Admin, &instance.Name, &instance.Description,
			&createdAt, &instance.CreatedTx, &createdBlock,
		); err != nil {
			return nil, err
		}
		instance.ChainID = uint64(chainID)
		instance.CreatedAt = uint64(createdAt)
		instance.CreatedBlock = uint64(createdBlock)
		out = append(out, instance)
	}
	return out, rows.Err()
}

func scanWithdrawals(rows pgx.Rows) ([]model.WithdrawalRequest, error) {
	out := make([]model.WithdrawalRequest, 0)
	for rows.Next() {
		var request model.WithdrawalRequest
		var requestID, requestedAt, lastUpdated, blockNumber int64
		var status string
		if err := rows.Scan(
			&request.ID, &request.InstanceAddress, &request.Member,
			&requestID, &request.Amount, &request.Reason, &status,
			&requestedAt, &lastUpdated, &blockNumber,
		); err != nil {
			return nil, err
		}
		request.RequestID = uint64(requestID)
		request.Status = model.WithdrawalStatus(status)
		request.RequestedAt = uint64(requestedAt)
		request.LastUpdated = uint64(lastUpdated)
		request.BlockNumber = uint64(blockNumber)
		out = append(out, request)
	}
	return out, rows.Err()
}
