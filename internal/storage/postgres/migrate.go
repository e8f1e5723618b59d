package postgres

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS instances (
		id            TEXT PRIMARY KEY,
		chain_id      BIGINT NOT NULL,
		chain_name    TEXT NOT NULL DEFAULT '',
		address       TEXT NOT NULL UNIQUE,
		admin         TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		created_at    BIGINT NOT NULL,
		created_tx    TEXT NOT NULL,
		created_block BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS instances_chain_idx ON instances (chain_id)`,
	`CREATE TABLE IF NOT EXISTS instance_states (
		instance_address  TEXT PRIMARY KEY,
		token_mode        BOOLEAN NOT NULL DEFAULT false,
		token_address     TEXT NOT NULL DEFAULT '',
		token_symbol      TEXT NOT NULL DEFAULT '',
		token_decimals    SMALLINT NOT NULL DEFAULT 18,
		one_time_payout   BOOLEAN NOT NULL DEFAULT false,
		cycle_seconds     BIGINT NOT NULL DEFAULT 0,
		locked            BOOLEAN NOT NULL DEFAULT false,
		requires_approval BOOLEAN NOT NULL DEFAULT false,
		applications_open BOOLEAN NOT NULL DEFAULT false,
		needs_confirmation BOOLEAN NOT NULL DEFAULT false,
		updated_at        BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		id                TEXT PRIMARY KEY,
		instance_address  TEXT NOT NULL,
		address           TEXT NOT NULL,
		cap_amount        NUMERIC(78,0) NOT NULL DEFAULT 0,
		paid              NUMERIC(78,0) NOT NULL DEFAULT 0,
		requires_approval BOOLEAN NOT NULL DEFAULT false,
		joined_at         BIGINT NOT NULL,
		joined_block      BIGINT NOT NULL,
		is_active         BOOLEAN NOT NULL,
		updated_at        BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS members_instance_idx ON members (instance_address)`,
	`CREATE INDEX IF NOT EXISTS members_address_idx ON members (address) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS admins (
		id               TEXT PRIMARY KEY,
		instance_address TEXT NOT NULL,
		address          TEXT NOT NULL,
		joined_at        BIGINT NOT NULL,
		joined_block     BIGINT NOT NULL,
		is_active        BOOLEAN NOT NULL,
		updated_at       BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS admins_instance_idx ON admins (instance_address)`,
	`CREATE INDEX IF NOT EXISTS admins_address_idx ON admins (address) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS payouts (
		id               TEXT PRIMARY KEY,
		instance_address TEXT NOT NULL,
		member           TEXT NOT NULL,
		amount           NUMERIC(78,0) NOT NULL,
		reason           TEXT NOT NULL DEFAULT '',
		ts               BIGINT NOT NULL,
		tx_hash          TEXT NOT NULL,
		log_index        BIGINT NOT NULL,
		block_number     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payouts_instance_idx ON payouts (instance_address, member)`,
	`CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id               TEXT PRIMARY KEY,
		instance_address TEXT NOT NULL,
		member           TEXT NOT NULL,
		request_id       BIGINT NOT NULL,
		amount           NUMERIC(78,0) NOT NULL,
		reason           TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		requested_at     BIGINT NOT NULL,
		last_updated     BIGINT NOT NULL,
		block_number     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS withdrawals_instance_idx ON withdrawal_requests (instance_address, member)`,
	`CREATE INDEX IF NOT EXISTS withdrawals_pending_idx ON withdrawal_requests (instance_address) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS indexer_state (
		chain_id             BIGINT PRIMARY KEY,
		last_processed_block BIGINT NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the projection schema. Statements are idempotent so the
// command is safe to re-run.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
