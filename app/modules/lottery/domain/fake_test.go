package lotterydomain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ownerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bettorAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	otherAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

type fixedRandom struct {
	number uint8
	err    error
	calls  int
}

func (f *fixedRandom) WinningNumber(context.Context, DrawContext) (uint8, error) {
	f.calls++
	return f.number, f.err
}

type recordingTransferer struct {
	transfers []Transfer
	failOn    TransferKind
	err       error
	// failAt fails only the nth call (1-based) when set.
	failAt int
	calls  int
	onCall func(t Transfer)
}

func (r *recordingTransferer) Transfer(_ context.Context, t Transfer) error {
	if r.onCall != nil {
		r.onCall(t)
	}
	r.calls++
	if r.failAt > 0 {
		if r.calls == r.failAt {
			return r.err
		}
	} else if r.err != nil && (r.failOn == "" || r.failOn == t.Kind) {
		return r.err
	}
	r.transfers = append(r.transfers, t)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
