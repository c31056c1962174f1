package lotterydomain

import "fmt"

// Payout policy names accepted by NewPayoutPolicy.
const (
	PolicyFixedMultiplier = "fixed_multiplier"
	PolicyWholePool       = "whole_pool"
)

// DefaultPrizeMultiplier pays 40 times the stake on a hit.
const DefaultPrizeMultiplier = 40

// Payout is the prize owed to one winning entry.
type Payout struct {
	Bettor Address
	Number uint8
	Stake  Amount
	Amount Amount
}

// PayoutPolicy decides what winners receive and how much the pool must hold
// before another entry is accepted.
type PayoutPolicy interface {
	Name() string
	// Liability is the worst-case total payout over every possible draw,
	// given per-number stake totals.
	Liability(stakes [MaxNumber + 1]Amount) (Amount, error)
	// Payouts computes prizes for the winning entries. The total never
	// exceeds pool.
	Payouts(winners []Entry, pool Amount) ([]Payout, error)
}

// NewPayoutPolicy builds a policy by name.
func NewPayoutPolicy(name string, multiplier uint64) (PayoutPolicy, error) {
	switch name {
	case "", PolicyFixedMultiplier:
		if multiplier == 0 {
			return nil, ErrInvalidMultiplier
		}
		return FixedMultiplier{Multiplier: multiplier}, nil
	case PolicyWholePool:
		return WholePool{}, nil
	}
	return nil, fmt.Errorf("unknown payout policy %q", name)
}

// FixedMultiplier pays stake*Multiplier to each winning entry.
type FixedMultiplier struct {
	Multiplier uint64
}

func (FixedMultiplier) Name() string { return PolicyFixedMultiplier }

func (p FixedMultiplier) Liability(stakes [MaxNumber + 1]Amount) (Amount, error) {
	var worst Amount
	for n := MinNumber; n <= MaxNumber; n++ {
		if worst.LessThan(stakes[n]) {
			worst = stakes[n]
		}
	}
	return worst.MulUint64(p.Multiplier)
}

func (p FixedMultiplier) Payouts(winners []Entry, pool Amount) ([]Payout, error) {
	out := make([]Payout, 0, len(winners))
	var total Amount
	for _, w := range winners {
		prize, err := w.Stake.MulUint64(p.Multiplier)
		if err != nil {
			return nil, err
		}
		if total, err = total.Add(prize); err != nil {
			return nil, err
		}
		out = append(out, Payout{Bettor: w.Bettor, Number: w.Number, Stake: w.Stake, Amount: prize})
	}
	if pool.LessThan(total) {
		// Unreachable while the liability check holds; fall back to a
		// pro-rata split so the pool never goes negative.
		return WholePool{}.Payouts(winners, pool)
	}
	return out, nil
}

// WholePool splits the entire pool among winners in proportion to stake.
// Rounding dust stays in the pool.
type WholePool struct{}

func (WholePool) Name() string { return PolicyWholePool }

func (WholePool) Liability([MaxNumber + 1]Amount) (Amount, error) {
	return Amount{}, nil
}

func (WholePool) Payouts(winners []Entry, pool Amount) ([]Payout, error) {
	var totalStake Amount
	for _, w := range winners {
		var err error
		if totalStake, err = totalStake.Add(w.Stake); err != nil {
			return nil, err
		}
	}
	out := make([]Payout, 0, len(winners))
	for _, w := range winners {
		out = append(out, Payout{
			Bettor: w.Bettor,
			Number: w.Number,
			Stake:  w.Stake,
			Amount: pool.MulDiv(w.Stake, totalStake),
		})
	}
	return out, nil
}
