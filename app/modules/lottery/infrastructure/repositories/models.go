package lotterydb

import (
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Lottery is the row holding one lottery's live round and pool.
type Lottery struct {
	bun.BaseModel `bun:"table:lotteries,alias:l"`

	ID            uuid.UUID            `bun:"id,pk,type:uuid"`
	Owner         string               `bun:"owner,notnull"`
	EntryFee      lotterydomain.Amount `bun:"entry_fee,type:numeric(78,0),notnull"`
	DrawTime      time.Time            `bun:"draw_time,notnull"`
	Phase         int16                `bun:"phase,notnull"`
	RoundNumber   int64                `bun:"round_number,notnull"`
	PoolBalance   lotterydomain.Amount `bun:"pool_balance,type:numeric(78,0),notnull"`
	WinningNumber int16                `bun:"winning_number,notnull"`
	PayoutPolicy  string               `bun:"payout_policy,notnull"`
	Multiplier    int64                `bun:"prize_multiplier,notnull"`
	CreatedAt     time.Time            `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time            `bun:"updated_at,notnull,default:current_timestamp"`
}

// Entry is one accepted guess in a round.
type Entry struct {
	bun.BaseModel `bun:"table:lottery_entries,alias:e"`

	ID          uuid.UUID            `bun:"id,pk,type:uuid"`
	LotteryID   uuid.UUID            `bun:"lottery_id,type:uuid,notnull"`
	RoundNumber int64                `bun:"round_number,notnull"`
	Bettor      string               `bun:"bettor,notnull"`
	Number      int16                `bun:"number,notnull"`
	Stake       lotterydomain.Amount `bun:"stake,type:numeric(78,0),notnull"`
	CreatedAt   time.Time            `bun:"created_at,notnull,default:current_timestamp"`
}

// Transfer statuses. A pending row is a payout the wallet has not yet
// accepted.
const (
	TransferSettled = "settled"
	TransferPending = "pending"
)

// Transfer is a record of a value movement. Payout and withdrawal rows are
// instructions for the wallet that settles them.
type Transfer struct {
	bun.BaseModel `bun:"table:lottery_transfers,alias:t"`

	ID           uuid.UUID            `bun:"id,pk,type:uuid"`
	LotteryID    uuid.UUID            `bun:"lottery_id,type:uuid,notnull"`
	RoundNumber  int64                `bun:"round_number,notnull"`
	Kind         string               `bun:"kind,notnull"`
	Counterparty string               `bun:"counterparty,notnull"`
	Amount       lotterydomain.Amount `bun:"amount,type:numeric(78,0),notnull"`
	Status       string               `bun:"status,notnull,default:'settled'"`
	CreatedAt    time.Time            `bun:"created_at,notnull,default:current_timestamp"`
}

// Draw is the settlement record of a round.
type Draw struct {
	bun.BaseModel `bun:"table:lottery_draws,alias:d"`

	ID            uuid.UUID            `bun:"id,pk,type:uuid"`
	LotteryID     uuid.UUID            `bun:"lottery_id,type:uuid,notnull"`
	RoundNumber   int64                `bun:"round_number,notnull"`
	WinningNumber int16                `bun:"winning_number,notnull"`
	Winners       int                  `bun:"winners,notnull"`
	Entries       int64                `bun:"entries,notnull"`
	TotalPayout   lotterydomain.Amount `bun:"total_payout,type:numeric(78,0),notnull"`
	PoolBefore    lotterydomain.Amount `bun:"pool_before,type:numeric(78,0),notnull"`
	PoolAfter     lotterydomain.Amount `bun:"pool_after,type:numeric(78,0),notnull"`
	DrawnBy       string               `bun:"drawn_by,notnull"`
	DrawnAt       time.Time            `bun:"drawn_at,notnull"`
}
