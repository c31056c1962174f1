package lotteryhandlers

import (
	"context"
	"time"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/google/uuid"
)

// FakeService implements lotteryservice.Service with overridable funcs.
// Unset funcs return zero values.
type FakeService struct {
	trace []string

	CreateLotteryFunc       func(ctx context.Context, req lotteryservice.CreateLotteryRequest) (*lotteryservice.LotteryView, error)
	GetLotteryFunc          func(ctx context.Context, id uuid.UUID) (*lotteryservice.LotteryView, error)
	ListLotteriesFunc       func(ctx context.Context, limit int) ([]lotteryservice.LotteryView, error)
	DepositFunc             func(ctx context.Context, id uuid.UUID, caller lotterydomain.Address, amount lotterydomain.Amount) (*lotteryservice.LotteryView, error)
	WithdrawFunc            func(ctx context.Context, id uuid.UUID, caller lotterydomain.Address) (*lotteryservice.WithdrawalView, error)
	SubmitNumberFunc        func(ctx context.Context, id uuid.UUID, caller lotterydomain.Address, number int, stake lotterydomain.Amount) (*lotteryservice.EntryView, error)
	DrawNumberFunc          func(ctx context.Context, id uuid.UUID, caller lotterydomain.Address) (*lotteryservice.DrawView, error)
	ScheduleNextDrawFunc    func(ctx context.Context, id uuid.UUID, caller lotterydomain.Address, fee lotterydomain.Amount, drawTime time.Time) (*lotteryservice.LotteryView, error)
	HandleScheduledDrawFunc func(ctx context.Context, id uuid.UUID, round uint64) (*lotteryservice.DrawView, error)
	GetStateFunc            func(ctx context.Context, id uuid.UUID) (lotterydomain.Phase, error)
	EntriesCountFunc        func(ctx context.Context, id uuid.UUID, number int) (uint64, error)
	WinningNumberFunc       func(ctx context.Context, id uuid.UUID) (uint8, error)
	ListDrawsFunc           func(ctx context.Context, id uuid.UUID, limit int) ([]lotteryservice.DrawView, error)
	ListTransfersFunc       func(ctx context.Context, id uuid.UUID, limit int) ([]lotteryservice.TransferView, error)
	SettlePendingFunc       func(ctx context.Context, id uuid.UUID) (*lotteryservice.SettlementView, error)
}

var _ lotteryservice.Service = (*FakeService)(nil)

func (f *FakeService) record(step string) { f.trace = append(f.trace, step) }

// Trace returns the called methods in order.
func (f *FakeService) Trace() []string { return f.trace }

func (f *FakeService) CreateLottery(ctx context.Context, req lotteryservice.CreateLotteryRequest) (*lotteryservice.LotteryView, error) {
	f.record("CreateLottery")
	if f.CreateLotteryFunc != nil {
		return f.CreateLotteryFunc(ctx, req)
	}
	return &lotteryservice.LotteryView{}, nil
}

func (f *FakeService) GetLottery(ctx context.Context, id uuid.UUID) (*lotteryservice.LotteryView, error) {
	f.record("GetLottery")
	if f.GetLotteryFunc != nil {
		return f.GetLotteryFunc(ctx, id)
	}
	return &lotteryservice.LotteryView{ID: id}, nil
}

func (f *FakeService) ListLotteries(ctx context.Context, limit int) ([]lotteryservice.LotteryView, error) {
	f.record("ListLotteries")
	if f.ListLotteriesFunc != nil {
		return f.ListLotteriesFunc(ctx, limit)
	}
	return nil, nil
}

func (f *FakeService) Deposit(ctx context.Context, id uuid.UUID, caller lotterydomain.Address, amount lotterydomain.Amount) (*lotteryservice.LotteryView, error) {
	f.record("Deposit")
	if f.DepositFunc != nil {
		return f.DepositFunc(ctx, id, caller, amount)
	}
	return &lotteryservice.LotteryView{ID: id}, nil
}

func (f *FakeService) Withdraw(ctx context.Context, id uuid.UUID, caller lotterydomain.Address) (*lotteryservice.WithdrawalView, error) {
	f.record("Withdraw")
	if f.WithdrawFunc != nil {
		return f.WithdrawFunc(ctx, id, caller)
	}
	return &lotteryservice.WithdrawalView{LotteryID: id}, nil
}

func (f *FakeService) SubmitNumber(ctx context.Context, id uuid.UUID, caller lotterydomain.Address, number int, stake lotterydomain.Amount) (*lotteryservice.EntryView, error) {
	f.record("SubmitNumber")
	if f.SubmitNumberFunc != nil {
		return f.SubmitNumberFunc(ctx, id, caller, number, stake)
	}
	return &lotteryservice.EntryView{LotteryID: id}, nil
}

func (f *FakeService) DrawNumber(ctx context.Context, id uuid.UUID, caller lotterydomain.Address) (*lotteryservice.DrawView, error) {
	f.record("DrawNumber")
	if f.DrawNumberFunc != nil {
		return f.DrawNumberFunc(ctx, id, caller)
	}
	return &lotteryservice.DrawView{LotteryID: id}, nil
}

func (f *FakeService) ScheduleNextDraw(ctx context.Context, id uuid.UUID, caller lotterydomain.Address, fee lotterydomain.Amount, drawTime time.Time) (*lotteryservice.LotteryView, error) {
	f.record("ScheduleNextDraw")
	if f.ScheduleNextDrawFunc != nil {
		return f.ScheduleNextDrawFunc(ctx, id, caller, fee, drawTime)
	}
	return &lotteryservice.LotteryView{ID: id}, nil
}

func (f *FakeService) HandleScheduledDraw(ctx context.Context, id uuid.UUID, round uint64) (*lotteryservice.DrawView, error) {
	f.record("HandleScheduledDraw")
	if f.HandleScheduledDrawFunc != nil {
		return f.HandleScheduledDrawFunc(ctx, id, round)
	}
	return nil, nil
}

func (f *FakeService) GetState(ctx context.Context, id uuid.UUID) (lotterydomain.Phase, error) {
	f.record("GetState")
	if f.GetStateFunc != nil {
		return f.GetStateFunc(ctx, id)
	}
	return lotterydomain.PhaseOpened, nil
}

func (f *FakeService) EntriesCount(ctx context.Context, id uuid.UUID, number int) (uint64, error) {
	f.record("EntriesCount")
	if f.EntriesCountFunc != nil {
		return f.EntriesCountFunc(ctx, id, number)
	}
	return 0, nil
}

func (f *FakeService) WinningNumber(ctx context.Context, id uuid.UUID) (uint8, error) {
	f.record("WinningNumber")
	if f.WinningNumberFunc != nil {
		return f.WinningNumberFunc(ctx, id)
	}
	return 0, nil
}

func (f *FakeService) ListDraws(ctx context.Context, id uuid.UUID, limit int) ([]lotteryservice.DrawView, error) {
	f.record("ListDraws")
	if f.ListDrawsFunc != nil {
		return f.ListDrawsFunc(ctx, id, limit)
	}
	return nil, nil
}

func (f *FakeService) ListTransfers(ctx context.Context, id uuid.UUID, limit int) ([]lotteryservice.TransferView, error) {
	f.record("ListTransfers")
	if f.ListTransfersFunc != nil {
		return f.ListTransfersFunc(ctx, id, limit)
	}
	return nil, nil
}

func (f *FakeService) SettlePendingPayouts(ctx context.Context, id uuid.UUID) (*lotteryservice.SettlementView, error) {
	f.record("SettlePendingPayouts")
	if f.SettlePendingFunc != nil {
		return f.SettlePendingFunc(ctx, id)
	}
	return &lotteryservice.SettlementView{LotteryID: id}, nil
}
