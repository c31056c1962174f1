package lotterymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating lottery tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lotteries (
					id UUID PRIMARY KEY,
					owner VARCHAR(42) NOT NULL,
					entry_fee NUMERIC(78,0) NOT NULL CHECK (entry_fee > 0),
					draw_time TIMESTAMPTZ NOT NULL,
					phase SMALLINT NOT NULL DEFAULT 0 CHECK (phase IN (0, 2)),
					round_number BIGINT NOT NULL DEFAULT 1,
					pool_balance NUMERIC(78,0) NOT NULL DEFAULT 0 CHECK (pool_balance >= 0),
					winning_number SMALLINT NOT NULL DEFAULT 0,
					payout_policy VARCHAR(32) NOT NULL,
					prize_multiplier BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create lotteries table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lottery_entries (
					id UUID PRIMARY KEY,
					lottery_id UUID NOT NULL REFERENCES lotteries(id) ON DELETE CASCADE,
					round_number BIGINT NOT NULL,
					bettor VARCHAR(42) NOT NULL,
					number SMALLINT NOT NULL CHECK (number BETWEEN 1 AND 49),
					stake NUMERIC(78,0) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (lottery_id, round_number, bettor, number)
				);
				CREATE INDEX IF NOT EXISTS idx_lottery_entries_round ON lottery_entries(lottery_id, round_number);
			`); err != nil {
				return fmt.Errorf("failed to create lottery_entries table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lottery_transfers (
					id UUID PRIMARY KEY,
					lottery_id UUID NOT NULL REFERENCES lotteries(id) ON DELETE CASCADE,
					round_number BIGINT NOT NULL,
					kind VARCHAR(16) NOT NULL,
					counterparty VARCHAR(42) NOT NULL,
					amount NUMERIC(78,0) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_lottery_transfers_lottery ON lottery_transfers(lottery_id, created_at);
			`); err != nil {
				return fmt.Errorf("failed to create lottery_transfers table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lottery_draws (
					id UUID PRIMARY KEY,
					lottery_id UUID NOT NULL REFERENCES lotteries(id) ON DELETE CASCADE,
					round_number BIGINT NOT NULL,
					winning_number SMALLINT NOT NULL,
					winners INTEGER NOT NULL,
					entries BIGINT NOT NULL,
					total_payout NUMERIC(78,0) NOT NULL,
					pool_before NUMERIC(78,0) NOT NULL,
					pool_after NUMERIC(78,0) NOT NULL,
					drawn_by VARCHAR(42) NOT NULL,
					drawn_at TIMESTAMPTZ NOT NULL,
					UNIQUE (lottery_id, round_number)
				);
			`); err != nil {
				return fmt.Errorf("failed to create lottery_draws table: %w", err)
			}

			fmt.Println("Lottery tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping lottery tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS lottery_draws;
			DROP TABLE IF EXISTS lottery_transfers;
			DROP TABLE IF EXISTS lottery_entries;
			DROP TABLE IF EXISTS lotteries;
		`)
		if err != nil {
			return fmt.Errorf("failed to drop lottery tables: %w", err)
		}

		fmt.Println("Lottery tables dropped successfully!")
		return nil
	})
}
