package lotterydomain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Guessable number range, inclusive.
const (
	MinNumber = 1
	MaxNumber = 49
)

// Phase is the round phase. The numeric values are part of the public
// contract: 1 is reserved and never entered.
type Phase uint8

const (
	PhaseOpened   Phase = 0
	PhaseFinished Phase = 2
)

func (p Phase) String() string {
	switch p {
	case PhaseOpened:
		return "opened"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

func (p Phase) Valid() bool {
	return p == PhaseOpened || p == PhaseFinished
}

// ParsePhase maps a name or numeric code to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "opened", "0":
		return PhaseOpened, nil
	case "finished", "2":
		return PhaseFinished, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Entry is one accepted guess.
type Entry struct {
	Bettor Address
	Number uint8
	Stake  Amount
}

// Round is the single live round of a lottery.
type Round struct {
	Number   uint64
	EntryFee Amount
	DrawTime time.Time
	Phase    Phase
}

// TransferKind classifies a value movement.
type TransferKind string

const (
	TransferDeposit    TransferKind = "deposit"
	TransferStake      TransferKind = "stake"
	TransferPayout     TransferKind = "payout"
	TransferWithdrawal TransferKind = "withdrawal"
)

// Transfer is an outbound value movement executed after state is updated.
type Transfer struct {
	Kind        TransferKind
	To          Address
	Amount      Amount
	RoundNumber uint64
}

// Transferer moves value out of the pool.
type Transferer interface {
	Transfer(ctx context.Context, t Transfer) error
}

// TransferFunc adapts a function to Transferer.
type TransferFunc func(ctx context.Context, t Transfer) error

func (f TransferFunc) Transfer(ctx context.Context, t Transfer) error { return f(ctx, t) }

// DrawContext is everything a RandomSource may look at.
type DrawContext struct {
	LotteryID   uuid.UUID
	RoundNumber uint64
	DrawTime    time.Time
	Now         time.Time
	Caller      Address
	Pool        Amount
	Entries     []Entry
}

// RandomSource picks the winning number. Implementations must return a value
// in [MinNumber, MaxNumber].
type RandomSource interface {
	WinningNumber(ctx context.Context, dc DrawContext) (uint8, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
