package lotterydomain

import (
	"context"
	"fmt"
	"time"
)

// DrawOutcome describes a settled draw.
type DrawOutcome struct {
	RoundNumber   uint64
	WinningNumber uint8
	Payouts       []Payout
	TotalPayout   Amount
	Entries       uint64
	PoolBefore    Amount
	PoolAfter     Amount
	DrawnAt       time.Time
	DrawnBy       Address
	// Unpaid lists payouts still owed because a transfer failed after an
	// earlier one had gone out. PayoutErr is that failure.
	Unpaid    []Payout
	PayoutErr error
}

// PrizeEngine picks the winning number and prices the prizes.
type PrizeEngine struct {
	policy PayoutPolicy
	random RandomSource
}

func NewPrizeEngine(policy PayoutPolicy, random RandomSource) PrizeEngine {
	return PrizeEngine{policy: policy, random: random}
}

func (e PrizeEngine) Policy() PayoutPolicy { return e.policy }

// Pick asks the random source for a number and checks the range.
func (e PrizeEngine) Pick(ctx context.Context, dc DrawContext) (uint8, error) {
	n, err := e.random.WinningNumber(ctx, dc)
	if err != nil {
		return 0, fmt.Errorf("random source: %w", err)
	}
	if n < MinNumber || n > MaxNumber {
		return 0, fmt.Errorf("%w: got %d", ErrRandomOutOfRange, n)
	}
	return n, nil
}

// Price computes payouts for number against ledger and pool.
func (e PrizeEngine) Price(number uint8, ledger *EntryLedger, pool Amount) ([]Payout, Amount, error) {
	winners := ledger.Matching(number)
	if len(winners) == 0 {
		return nil, Amount{}, nil
	}
	payouts, err := e.policy.Payouts(winners, pool)
	if err != nil {
		return nil, Amount{}, err
	}
	var total Amount
	for _, p := range payouts {
		if total, err = total.Add(p.Amount); err != nil {
			return nil, Amount{}, err
		}
	}
	if pool.LessThan(total) {
		return nil, Amount{}, ErrInsufficientPool
	}
	return payouts, total, nil
}

// Affordable checks the pool against the worst-case liability after
// accepting e.
func (e PrizeEngine) Affordable(ledger *EntryLedger, entry Entry, poolAfter Amount) error {
	stakes, err := ledger.StakesWith(entry)
	if err != nil {
		return err
	}
	liability, err := e.policy.Liability(stakes)
	if err != nil {
		return err
	}
	if poolAfter.LessThan(liability) {
		return ErrInsufficientPool
	}
	return nil
}
