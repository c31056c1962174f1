package lotteryservice

import (
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/google/uuid"
)

// CreateLotteryRequest carries the construct arguments. Owner becomes the
// only address allowed to deposit, withdraw and schedule.
type CreateLotteryRequest struct {
	Owner    lotterydomain.Address
	EntryFee lotterydomain.Amount
	DrawTime time.Time
}

// LotteryView is the read model of one lottery.
type LotteryView struct {
	ID              uuid.UUID            `json:"id"`
	Owner           string               `json:"owner"`
	RoundNumber     uint64               `json:"round_number"`
	EntryFee        lotterydomain.Amount `json:"entry_fee"`
	DrawTime        time.Time            `json:"draw_time"`
	Phase           lotterydomain.Phase  `json:"phase"`
	PhaseName       string               `json:"phase_name"`
	PoolBalance     lotterydomain.Amount `json:"pool_balance"`
	WinningNumber   uint8                `json:"winning_number"`
	PayoutPolicy    string               `json:"payout_policy"`
	PrizeMultiplier uint64               `json:"prize_multiplier,omitempty"`
	TotalEntries    uint64               `json:"total_entries"`
	// EntriesCounts holds the non-zero per-number counters.
	EntriesCounts map[int]uint64 `json:"entries_counts,omitempty"`
}

// EntryView is an accepted submission.
type EntryView struct {
	LotteryID   uuid.UUID            `json:"lottery_id"`
	RoundNumber uint64               `json:"round_number"`
	Bettor      string               `json:"bettor"`
	Number      uint8                `json:"number"`
	Stake       lotterydomain.Amount `json:"stake"`
	Count       uint64               `json:"entries_on_number"`
	PoolBalance lotterydomain.Amount `json:"pool_balance"`
}

// WinnerView is one paid entry of a draw.
type WinnerView struct {
	Bettor string               `json:"bettor"`
	Stake  lotterydomain.Amount `json:"stake"`
	Amount lotterydomain.Amount `json:"amount"`
}

// DrawView is a settled round. Winners is only populated for the draw that
// was just performed; history rows carry WinnerCount.
type DrawView struct {
	LotteryID     uuid.UUID            `json:"lottery_id"`
	RoundNumber   uint64               `json:"round_number"`
	WinningNumber uint8                `json:"winning_number"`
	WinnerCount   int                  `json:"winner_count"`
	Winners       []WinnerView         `json:"winners,omitempty"`
	TotalPayout   lotterydomain.Amount `json:"total_payout"`
	Entries       uint64               `json:"entries"`
	PoolBefore    lotterydomain.Amount `json:"pool_before"`
	PoolAfter     lotterydomain.Amount `json:"pool_after"`
	DrawnBy       string               `json:"drawn_by"`
	DrawnAt       time.Time            `json:"drawn_at"`
	// PendingPayouts are winners still owed after a wallet failure. Only set
	// on the view returned by the draw itself.
	PendingPayouts []WinnerView `json:"pending_payouts,omitempty"`
}

// TransferView is one journal row.
type TransferView struct {
	ID           uuid.UUID            `json:"id"`
	LotteryID    uuid.UUID            `json:"lottery_id"`
	RoundNumber  uint64               `json:"round_number"`
	Kind         string               `json:"kind"`
	Counterparty string               `json:"counterparty"`
	Amount       lotterydomain.Amount `json:"amount"`
	Status       string               `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
}

// SettlementView reports a pass over pending payouts.
type SettlementView struct {
	LotteryID uuid.UUID      `json:"lottery_id"`
	Settled   []TransferView `json:"settled"`
	Pending   []TransferView `json:"pending"`
}

// WithdrawalView reports what the owner received.
type WithdrawalView struct {
	LotteryID uuid.UUID            `json:"lottery_id"`
	To        string               `json:"to"`
	Amount    lotterydomain.Amount `json:"amount"`
}

func newLotteryView(l *lotterydomain.Lottery, row *lotterydb.Lottery) *LotteryView {
	round := l.Round()
	view := &LotteryView{
		ID:            l.ID(),
		Owner:         l.Owner().Hex(),
		RoundNumber:   round.Number,
		EntryFee:      round.EntryFee,
		DrawTime:      round.DrawTime,
		Phase:         round.Phase,
		PhaseName:     round.Phase.String(),
		PoolBalance:   l.Pool(),
		WinningNumber: l.WinningNumber(),
		PayoutPolicy:  row.PayoutPolicy,
		TotalEntries:  l.TotalEntries(),
	}
	if row.PayoutPolicy == lotterydomain.PolicyFixedMultiplier {
		view.PrizeMultiplier = uint64(row.Multiplier)
	}
	counts := l.EntriesCounts()
	for n := lotterydomain.MinNumber; n <= lotterydomain.MaxNumber; n++ {
		if counts[n] == 0 {
			continue
		}
		if view.EntriesCounts == nil {
			view.EntriesCounts = make(map[int]uint64)
		}
		view.EntriesCounts[n] = counts[n]
	}
	return view
}

func newDrawView(lotteryID uuid.UUID, o lotterydomain.DrawOutcome) *DrawView {
	view := &DrawView{
		LotteryID:     lotteryID,
		RoundNumber:   o.RoundNumber,
		WinningNumber: o.WinningNumber,
		WinnerCount:   len(o.Payouts),
		TotalPayout:   o.TotalPayout,
		Entries:       o.Entries,
		PoolBefore:    o.PoolBefore,
		PoolAfter:     o.PoolAfter,
		DrawnBy:       o.DrawnBy.Hex(),
		DrawnAt:       o.DrawnAt,
	}
	for _, p := range o.Payouts {
		view.Winners = append(view.Winners, WinnerView{
			Bettor: p.Bettor.Hex(),
			Stake:  p.Stake,
			Amount: p.Amount,
		})
	}
	for _, p := range o.Unpaid {
		view.PendingPayouts = append(view.PendingPayouts, WinnerView{
			Bettor: p.Bettor.Hex(),
			Stake:  p.Stake,
			Amount: p.Amount,
		})
	}
	return view
}

func drawViewFromRow(d *lotterydb.Draw) DrawView {
	return DrawView{
		LotteryID:     d.LotteryID,
		RoundNumber:   uint64(d.RoundNumber),
		WinningNumber: uint8(d.WinningNumber),
		WinnerCount:   d.Winners,
		TotalPayout:   d.TotalPayout,
		Entries:       uint64(d.Entries),
		PoolBefore:    d.PoolBefore,
		PoolAfter:     d.PoolAfter,
		DrawnBy:       d.DrawnBy,
		DrawnAt:       d.DrawnAt,
	}
}

func transferViewFromRow(t *lotterydb.Transfer) TransferView {
	return TransferView{
		ID:           t.ID,
		LotteryID:    t.LotteryID,
		RoundNumber:  uint64(t.RoundNumber),
		Kind:         t.Kind,
		Counterparty: t.Counterparty,
		Amount:       t.Amount,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
	}
}
