package lotterydb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for lottery persistence. Every method takes
// the bun.IDB to run on so callers can compose them in one transaction.
type Repository interface {
	// CreateLottery inserts a new lottery row.
	CreateLottery(ctx context.Context, db bun.IDB, lottery *Lottery) error

	// GetLottery reads a lottery without locking.
	GetLottery(ctx context.Context, db bun.IDB, id uuid.UUID) (*Lottery, error)

	// GetLotteryForUpdate reads a lottery and locks its row until the
	// transaction ends.
	GetLotteryForUpdate(ctx context.Context, db bun.IDB, id uuid.UUID) (*Lottery, error)

	// UpdateLottery persists round, pool and winning number.
	UpdateLottery(ctx context.Context, db bun.IDB, lottery *Lottery) error

	// ListLotteries returns lotteries newest first.
	ListLotteries(ctx context.Context, db bun.IDB, limit int) ([]*Lottery, error)

	// ListEntries returns the entries of one round in submission order.
	ListEntries(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, roundNumber int64) ([]*Entry, error)

	// InsertEntry records an accepted entry.
	InsertEntry(ctx context.Context, db bun.IDB, entry *Entry) error

	// DeleteEntries removes every entry of a round.
	DeleteEntries(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, roundNumber int64) error

	// InsertTransfer appends to the transfer journal.
	InsertTransfer(ctx context.Context, db bun.IDB, transfer *Transfer) error

	// DeleteTransfer removes a journal row the wallet refused.
	DeleteTransfer(ctx context.Context, db bun.IDB, id uuid.UUID) error

	// ListPendingTransfers returns unsettled payouts oldest first.
	ListPendingTransfers(ctx context.Context, db bun.IDB, lotteryID uuid.UUID) ([]*Transfer, error)

	// MarkTransferSettled flips a pending row to settled.
	MarkTransferSettled(ctx context.Context, db bun.IDB, id uuid.UUID) error

	// ListTransfers returns the journal newest first.
	ListTransfers(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, limit int) ([]*Transfer, error)

	// InsertDraw records a settlement.
	InsertDraw(ctx context.Context, db bun.IDB, draw *Draw) error

	// ListDraws returns settlements newest first.
	ListDraws(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, limit int) ([]*Draw, error)
}
