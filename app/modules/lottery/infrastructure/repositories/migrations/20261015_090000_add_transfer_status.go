package lotterymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Adding transfer status...")

		_, err := db.ExecContext(ctx, `
			ALTER TABLE lottery_transfers
				ADD COLUMN IF NOT EXISTS status VARCHAR(16) NOT NULL DEFAULT 'settled'
				CHECK (status IN ('settled', 'pending'));
			CREATE INDEX IF NOT EXISTS idx_lottery_transfers_pending
				ON lottery_transfers(lottery_id, created_at) WHERE status = 'pending';
		`)
		if err != nil {
			return fmt.Errorf("failed to add transfer status: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping transfer status...")

		_, err := db.ExecContext(ctx, `
			DROP INDEX IF EXISTS idx_lottery_transfers_pending;
			ALTER TABLE lottery_transfers DROP COLUMN IF EXISTS status;
		`)
		if err != nil {
			return fmt.Errorf("failed to drop transfer status: %w", err)
		}
		return nil
	})
}
