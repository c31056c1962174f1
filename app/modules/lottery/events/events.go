// Package lotteryevents defines the topics and payloads the lottery module
// publishes and consumes.
package lotteryevents

import (
	"time"

	"github.com/google/uuid"
)

const (
	LotteryCreatedV1    = "lottery.created.v1"
	DepositedV1         = "lottery.deposited.v1"
	NumberSubmittedV1   = "lottery.submitted.v1"
	NumberDrawnV1       = "lottery.drawn.v1"
	WithdrawnV1         = "lottery.withdrawn.v1"
	DrawScheduledV1     = "lottery.scheduled.v1"
	DrawRequestedV1     = "lottery.draw.requested.v1"
	DrawRequestFailedV1 = "lottery.draw.failed.v1"
	PayoutsSettledV1    = "lottery.payouts.settled.v1"
)

// LotteryCreatedPayloadV1 is published when a lottery is constructed.
type LotteryCreatedPayloadV1 struct {
	LotteryID   uuid.UUID `json:"lottery_id"`
	Owner       string    `json:"owner"`
	EntryFee    string    `json:"entry_fee"`
	DrawTime    time.Time `json:"draw_time"`
	RoundNumber uint64    `json:"round_number"`
}

// DepositedPayloadV1 is published after the owner funds the pool.
type DepositedPayloadV1 struct {
	LotteryID   uuid.UUID `json:"lottery_id"`
	From        string    `json:"from"`
	Amount      string    `json:"amount"`
	PoolBalance string    `json:"pool_balance"`
}

// NumberSubmittedPayloadV1 is published for every accepted entry.
type NumberSubmittedPayloadV1 struct {
	LotteryID   uuid.UUID `json:"lottery_id"`
	RoundNumber uint64    `json:"round_number"`
	Bettor      string    `json:"bettor"`
	Number      uint8     `json:"number"`
	Stake       string    `json:"stake"`
	PoolBalance string    `json:"pool_balance"`
}

// WinnerV1 is one paid entry.
type WinnerV1 struct {
	Bettor string `json:"bettor"`
	Stake  string `json:"stake"`
	Amount string `json:"amount"`
}

// NumberDrawnPayloadV1 is published when a round settles.
type NumberDrawnPayloadV1 struct {
	LotteryID     uuid.UUID  `json:"lottery_id"`
	RoundNumber   uint64     `json:"round_number"`
	WinningNumber uint8      `json:"winning_number"`
	Winners       []WinnerV1 `json:"winners"`
	TotalPayout   string     `json:"total_payout"`
	Entries       uint64     `json:"entries"`
	PoolBalance   string     `json:"pool_balance"`
	DrawnBy       string     `json:"drawn_by"`
	DrawnAt       time.Time  `json:"drawn_at"`
	// PendingPayouts lists winners the wallet has not paid yet.
	PendingPayouts []WinnerV1 `json:"pending_payouts,omitempty"`
}

// WithdrawnPayloadV1 is published when the owner empties the pool.
type WithdrawnPayloadV1 struct {
	LotteryID uuid.UUID `json:"lottery_id"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
}

// DrawScheduledPayloadV1 is published when a new round opens.
type DrawScheduledPayloadV1 struct {
	LotteryID   uuid.UUID `json:"lottery_id"`
	RoundNumber uint64    `json:"round_number"`
	EntryFee    string    `json:"entry_fee"`
	DrawTime    time.Time `json:"draw_time"`
}

// DrawRequestedPayloadV1 asks the lottery module to settle a round. The
// scheduler emits it at draw time.
type DrawRequestedPayloadV1 struct {
	LotteryID   uuid.UUID `json:"lottery_id"`
	RoundNumber uint64    `json:"round_number"`
	RequestedAt time.Time `json:"requested_at"`
}

// DrawRequestFailedPayloadV1 reports a draw request that was rejected.
type DrawRequestFailedPayloadV1 struct {
	LotteryID   uuid.UUID `json:"lottery_id"`
	RoundNumber uint64    `json:"round_number"`
	Code        string    `json:"code"`
	Reason      string    `json:"reason"`
}

// PaidV1 is one payout the wallet accepted late.
type PaidV1 struct {
	RoundNumber uint64 `json:"round_number"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
}

// PayoutsSettledPayloadV1 is published when pending payouts are paid.
type PayoutsSettledPayloadV1 struct {
	LotteryID uuid.UUID `json:"lottery_id"`
	Settled   []PaidV1  `json:"settled"`
	Pending   int       `json:"pending"`
}
