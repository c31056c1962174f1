package lotterydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a lottery is not found.
var ErrNotFound = errors.New("lottery not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new lottery repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) CreateLottery(ctx context.Context, db bun.IDB, lottery *Lottery) error {
	db = r.resolveDB(db)
	now := time.Now().UTC()
	lottery.CreatedAt = now
	lottery.UpdatedAt = now
	if _, err := db.NewInsert().Model(lottery).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create lottery: %w", err)
	}
	return nil
}

func (r *Impl) GetLottery(ctx context.Context, db bun.IDB, id uuid.UUID) (*Lottery, error) {
	return r.getLottery(ctx, r.resolveDB(db), id, false)
}

func (r *Impl) GetLotteryForUpdate(ctx context.Context, db bun.IDB, id uuid.UUID) (*Lottery, error) {
	return r.getLottery(ctx, r.resolveDB(db), id, true)
}

func (r *Impl) getLottery(ctx context.Context, db bun.IDB, id uuid.UUID, forUpdate bool) (*Lottery, error) {
	lottery := new(Lottery)
	q := db.NewSelect().Model(lottery).Where("l.id = ?", id)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	return lottery, nil
}

func (r *Impl) UpdateLottery(ctx context.Context, db bun.IDB, lottery *Lottery) error {
	db = r.resolveDB(db)
	lottery.UpdatedAt = time.Now().UTC()
	result, err := db.NewUpdate().
		Model(lottery).
		Column("entry_fee", "draw_time", "phase", "round_number", "pool_balance", "winning_number", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update lottery: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) ListLotteries(ctx context.Context, db bun.IDB, limit int) ([]*Lottery, error) {
	db = r.resolveDB(db)
	var lotteries []*Lottery
	q := db.NewSelect().Model(&lotteries).Order("l.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list lotteries: %w", err)
	}
	return lotteries, nil
}

func (r *Impl) ListEntries(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, roundNumber int64) ([]*Entry, error) {
	db = r.resolveDB(db)
	var entries []*Entry
	err := db.NewSelect().
		Model(&entries).
		Where("e.lottery_id = ?", lotteryID).
		Where("e.round_number = ?", roundNumber).
		Order("e.created_at ASC", "e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

func (r *Impl) InsertEntry(ctx context.Context, db bun.IDB, entry *Entry) error {
	db = r.resolveDB(db)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (r *Impl) DeleteEntries(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, roundNumber int64) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Entry)(nil)).
		Where("lottery_id = ?", lotteryID).
		Where("round_number = ?", roundNumber).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

func (r *Impl) InsertTransfer(ctx context.Context, db bun.IDB, transfer *Transfer) error {
	db = r.resolveDB(db)
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = time.Now().UTC()
	}
	if transfer.Status == "" {
		transfer.Status = TransferSettled
	}
	if _, err := db.NewInsert().Model(transfer).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

func (r *Impl) DeleteTransfer(ctx context.Context, db bun.IDB, id uuid.UUID) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Transfer)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}
	return nil
}

func (r *Impl) ListPendingTransfers(ctx context.Context, db bun.IDB, lotteryID uuid.UUID) ([]*Transfer, error) {
	db = r.resolveDB(db)
	var transfers []*Transfer
	err := db.NewSelect().
		Model(&transfers).
		Where("t.lottery_id = ?", lotteryID).
		Where("t.status = ?", TransferPending).
		Order("t.created_at ASC", "t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transfers: %w", err)
	}
	return transfers, nil
}

func (r *Impl) MarkTransferSettled(ctx context.Context, db bun.IDB, id uuid.UUID) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Transfer)(nil)).
		Set("status = ?", TransferSettled).
		Where("id = ?", id).
		Where("status = ?", TransferPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to settle transfer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) ListTransfers(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, limit int) ([]*Transfer, error) {
	db = r.resolveDB(db)
	var transfers []*Transfer
	q := db.NewSelect().
		Model(&transfers).
		Where("t.lottery_id = ?", lotteryID).
		Order("t.created_at DESC", "t.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return transfers, nil
}

func (r *Impl) InsertDraw(ctx context.Context, db bun.IDB, draw *Draw) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(draw).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert draw: %w", err)
	}
	return nil
}

func (r *Impl) ListDraws(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, limit int) ([]*Draw, error) {
	db = r.resolveDB(db)
	var draws []*Draw
	q := db.NewSelect().
		Model(&draws).
		Where("d.lottery_id = ?", lotteryID).
		Order("d.round_number DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	return draws, nil
}
