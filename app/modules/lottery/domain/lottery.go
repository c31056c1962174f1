package lotterydomain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Deps are the collaborators a Lottery calls out to.
type Deps struct {
	Policy     PayoutPolicy
	Random     RandomSource
	Clock      Clock
	Transferer Transferer
}

func (d Deps) validate() error {
	if d.Policy == nil {
		return errors.New("lottery: payout policy is required")
	}
	if d.Random == nil {
		return errors.New("lottery: random source is required")
	}
	if d.Transferer == nil {
		return errors.New("lottery: transferer is required")
	}
	return nil
}

// State is the persisted form of a Lottery.
type State struct {
	ID            uuid.UUID
	Owner         Address
	Round         Round
	Pool          Amount
	WinningNumber uint8
	Entries       []Entry
}

// Lottery is the context object for one lottery. It is not safe for
// concurrent use; callers serialise operations per lottery.
type Lottery struct {
	id            uuid.UUID
	access        AccessControl
	round         RoundStateMachine
	ledger        *EntryLedger
	treasury      Treasury
	prize         PrizeEngine
	clock         Clock
	transferer    Transferer
	winningNumber uint8
	// sent counts transfers that have left the pool. It is never rolled back.
	sent uint64
}

// New constructs a lottery owned by owner with round 1 opened.
func New(id uuid.UUID, owner Address, entryFee Amount, drawTime time.Time, deps Deps) (*Lottery, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	round, err := NewRoundStateMachine(entryFee, drawTime)
	if err != nil {
		return nil, err
	}
	return &Lottery{
		id:         id,
		access:     NewAccessControl(owner),
		round:      round,
		ledger:     NewEntryLedger(),
		prize:      NewPrizeEngine(deps.Policy, deps.Random),
		clock:      clockOrSystem(deps.Clock),
		transferer: deps.Transferer,
	}, nil
}

// Restore rebuilds a lottery from persisted state.
func Restore(s State, deps Deps) (*Lottery, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if !s.Round.Phase.Valid() {
		return nil, fmt.Errorf("lottery %s: stored phase %d is invalid", s.ID, s.Round.Phase)
	}
	ledger := NewEntryLedger()
	for _, e := range s.Entries {
		if err := ledger.Record(e); err != nil {
			return nil, fmt.Errorf("lottery %s: stored entry %s/%d: %w", s.ID, e.Bettor.Hex(), e.Number, err)
		}
	}
	return &Lottery{
		id:            s.ID,
		access:        NewAccessControl(s.Owner),
		round:         restoreRoundStateMachine(s.Round),
		ledger:        ledger,
		treasury:      NewTreasury(s.Pool),
		prize:         NewPrizeEngine(deps.Policy, deps.Random),
		clock:         clockOrSystem(deps.Clock),
		transferer:    deps.Transferer,
		winningNumber: s.WinningNumber,
	}, nil
}

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}

func (l *Lottery) ID() uuid.UUID { return l.id }

func (l *Lottery) Owner() Address { return l.access.Owner() }

func (l *Lottery) Round() Round { return l.round.Round() }

// State returns a snapshot of the lottery.
func (l *Lottery) State() State {
	return State{
		ID:            l.id,
		Owner:         l.access.Owner(),
		Round:         l.round.Round(),
		Pool:          l.treasury.Balance(),
		WinningNumber: l.winningNumber,
		Entries:       l.ledger.Entries(),
	}
}

// Phase is the getState query.
func (l *Lottery) Phase() Phase { return l.round.Phase() }

// EntriesCount returns the live entries on number.
func (l *Lottery) EntriesCount(number int) uint64 { return l.ledger.Count(number) }

// EntriesCounts returns every per-number counter, indexed by number.
func (l *Lottery) EntriesCounts() [MaxNumber + 1]uint64 { return l.ledger.Counts() }

func (l *Lottery) TotalEntries() uint64 { return l.ledger.Total() }

// WinningNumber is the last drawn number, or 0 once settled.
func (l *Lottery) WinningNumber() uint8 { return l.winningNumber }

func (l *Lottery) Pool() Amount { return l.treasury.Balance() }

func (l *Lottery) PayoutPolicy() PayoutPolicy { return l.prize.Policy() }

// Deposit adds amount to the pool. Owner only, any phase.
func (l *Lottery) Deposit(_ context.Context, caller Address, amount Amount) error {
	if err := l.access.Authorize(caller); err != nil {
		return err
	}
	return l.treasury.Credit(amount)
}

// SubmitNumber records caller's guess with stake paid into the pool.
func (l *Lottery) SubmitNumber(_ context.Context, caller Address, number int, stake Amount) (Entry, error) {
	if err := l.round.Require(PhaseOpened); err != nil {
		return Entry{}, err
	}
	if stake.LessThan(l.round.Round().EntryFee) {
		return Entry{}, ErrInsufficientPayment
	}
	if err := ValidateNumber(number); err != nil {
		return Entry{}, err
	}
	entry := Entry{Bettor: caller, Number: uint8(number), Stake: stake}
	if l.ledger.Has(caller, entry.Number) {
		return Entry{}, ErrDuplicateEntry
	}
	poolAfter, err := l.treasury.Balance().Add(stake)
	if err != nil {
		return Entry{}, err
	}
	if err := l.prize.Affordable(l.ledger, entry, poolAfter); err != nil {
		return Entry{}, err
	}

	if err := l.ledger.Record(entry); err != nil {
		return Entry{}, err
	}
	if err := l.treasury.Credit(stake); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// DrawNumber settles the round. Anyone may call it once the draw time has
// passed. All state changes are applied before any transfer runs. If the first
// payout fails the lottery is rolled back to its pre-draw state. Once a payout
// has gone out the draw stands, and the winners still owed are returned in
// DrawOutcome.Unpaid.
func (l *Lottery) DrawNumber(ctx context.Context, caller Address) (DrawOutcome, error) {
	if err := l.round.Require(PhaseOpened); err != nil {
		return DrawOutcome{}, err
	}
	now := l.clock.Now()
	round := l.round.Round()
	if now.Before(round.DrawTime) {
		return DrawOutcome{}, ErrTooEarly
	}

	number, err := l.prize.Pick(ctx, DrawContext{
		LotteryID:   l.id,
		RoundNumber: round.Number,
		DrawTime:    round.DrawTime,
		Now:         now,
		Caller:      caller,
		Pool:        l.treasury.Balance(),
		Entries:     l.ledger.Entries(),
	})
	if err != nil {
		return DrawOutcome{}, err
	}
	poolBefore := l.treasury.Balance()
	payouts, total, err := l.prize.Price(number, l.ledger, poolBefore)
	if err != nil {
		return DrawOutcome{}, err
	}

	snap := l.snapshot()
	outcome := DrawOutcome{
		RoundNumber:   round.Number,
		WinningNumber: number,
		Payouts:       payouts,
		TotalPayout:   total,
		Entries:       l.ledger.Total(),
		PoolBefore:    poolBefore,
		DrawnAt:       now,
		DrawnBy:       caller,
	}

	if err := l.treasury.Debit(total); err != nil {
		l.restore(snap)
		return DrawOutcome{}, err
	}
	l.ledger.Reset()
	l.winningNumber = 0
	if err := l.round.Finish(); err != nil {
		l.restore(snap)
		return DrawOutcome{}, err
	}
	outcome.PoolAfter = l.treasury.Balance()

	sentBefore := l.sent
	for i, p := range payouts {
		if p.Amount.IsZero() {
			continue
		}
		err := l.transfer(ctx, Transfer{
			Kind:        TransferPayout,
			To:          p.Bettor,
			Amount:      p.Amount,
			RoundNumber: round.Number,
		})
		if err == nil {
			continue
		}
		err = fmt.Errorf("payout to %s: %w", p.Bettor.Hex(), err)
		if l.sent == sentBefore {
			l.restore(snap)
			return DrawOutcome{}, err
		}
		// Value has already left the pool, so the settlement stands and the
		// remaining winners are owed.
		outcome.Unpaid = owed(payouts[i:])
		outcome.PayoutErr = err
		break
	}
	return outcome, nil
}

// Withdraw sends the whole pool to the owner. Owner only, Finished only.
func (l *Lottery) Withdraw(ctx context.Context, caller Address) (Amount, error) {
	if err := l.access.Authorize(caller); err != nil {
		return Amount{}, err
	}
	if err := l.round.Require(PhaseFinished); err != nil {
		return Amount{}, err
	}

	amount := l.treasury.Drain()
	if amount.IsZero() {
		return amount, nil
	}
	err := l.transfer(ctx, Transfer{
		Kind:        TransferWithdrawal,
		To:          l.access.Owner(),
		Amount:      amount,
		RoundNumber: l.round.Round().Number,
	})
	if err != nil {
		// Credit back rather than restore a snapshot so that anything a
		// re-entrant call did during the transfer is kept.
		if cerr := l.treasury.Credit(amount); cerr != nil {
			return Amount{}, fmt.Errorf("withdrawal: %w", errors.Join(err, cerr))
		}
		return Amount{}, fmt.Errorf("withdrawal: %w", err)
	}
	return amount, nil
}

// ScheduleNextDraw opens the next round. Owner only, Finished only.
func (l *Lottery) ScheduleNextDraw(_ context.Context, caller Address, entryFee Amount, drawTime time.Time) (Round, error) {
	if err := l.access.Authorize(caller); err != nil {
		return Round{}, err
	}
	if err := l.round.Reopen(entryFee, drawTime); err != nil {
		return Round{}, err
	}
	l.ledger.Reset()
	l.winningNumber = 0
	return l.round.Round(), nil
}

// transfer executes t and counts it once it has succeeded.
func (l *Lottery) transfer(ctx context.Context, t Transfer) error {
	if err := l.transferer.Transfer(ctx, t); err != nil {
		return err
	}
	l.sent++
	return nil
}

func owed(payouts []Payout) []Payout {
	var out []Payout
	for _, p := range payouts {
		if !p.Amount.IsZero() {
			out = append(out, p)
		}
	}
	return out
}

type snapshot struct {
	round         RoundStateMachine
	ledger        *EntryLedger
	treasury      Treasury
	winningNumber uint8
}

func (l *Lottery) snapshot() snapshot {
	return snapshot{
		round:         l.round,
		ledger:        l.ledger.clone(),
		treasury:      l.treasury,
		winningNumber: l.winningNumber,
	}
}

func (l *Lottery) restore(s snapshot) {
	l.round = s.round
	l.ledger = s.ledger
	l.treasury = s.treasury
	l.winningNumber = s.winningNumber
}
