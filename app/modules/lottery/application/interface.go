package lotteryservice

import (
	"context"
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/google/uuid"
)

// Service is the application surface of the lottery module. Mutating
// operations run in one transaction per call and publish events after
// commit. Domain rejections come back as *lotterydomain.Error values.
type Service interface {
	CreateLottery(ctx context.Context, req CreateLotteryRequest) (*LotteryView, error)
	GetLottery(ctx context.Context, lotteryID uuid.UUID) (*LotteryView, error)
	ListLotteries(ctx context.Context, limit int) ([]LotteryView, error)

	Deposit(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address, amount lotterydomain.Amount) (*LotteryView, error)
	Withdraw(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address) (*WithdrawalView, error)
	SubmitNumber(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address, number int, stake lotterydomain.Amount) (*EntryView, error)
	DrawNumber(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address) (*DrawView, error)
	ScheduleNextDraw(ctx context.Context, lotteryID uuid.UUID, caller lotterydomain.Address, entryFee lotterydomain.Amount, drawTime time.Time) (*LotteryView, error)

	// HandleScheduledDraw settles roundNumber if it is still the live,
	// opened round. A nil view with a nil error means the request was stale
	// or has been re-enqueued.
	HandleScheduledDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64) (*DrawView, error)

	GetState(ctx context.Context, lotteryID uuid.UUID) (lotterydomain.Phase, error)
	EntriesCount(ctx context.Context, lotteryID uuid.UUID, number int) (uint64, error)
	WinningNumber(ctx context.Context, lotteryID uuid.UUID) (uint8, error)

	ListDraws(ctx context.Context, lotteryID uuid.UUID, limit int) ([]DrawView, error)
	ListTransfers(ctx context.Context, lotteryID uuid.UUID, limit int) ([]TransferView, error)

	// SettlePendingPayouts retries payouts the wallet refused during a draw
	// that had already paid other winners.
	SettlePendingPayouts(ctx context.Context, lotteryID uuid.UUID) (*SettlementView, error)
}

// DrawScheduler enqueues a draw at a round's draw time.
type DrawScheduler interface {
	ScheduleDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64, drawTime time.Time) error
	// RescheduleDraw enqueues another attempt for a round whose job ran early.
	RescheduleDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64, runAt time.Time) error
	CancelDrawJobs(ctx context.Context, lotteryID uuid.UUID) error
}
