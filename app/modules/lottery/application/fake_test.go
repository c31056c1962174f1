package lotteryservice

import (
	"context"
	"sort"
	"sync"
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Lottery Repo
// ------------------------

// FakeLotteryRepo keeps rows in memory unless a ...Func override is set.
type FakeLotteryRepo struct {
	mu    sync.Mutex
	trace []string

	lotteries map[uuid.UUID]lotterydb.Lottery
	entries   []lotterydb.Entry
	transfers []lotterydb.Transfer
	draws     []lotterydb.Draw

	CreateLotteryFunc       func(ctx context.Context, db bun.IDB, lottery *lotterydb.Lottery) error
	GetLotteryFunc          func(ctx context.Context, db bun.IDB, id uuid.UUID) (*lotterydb.Lottery, error)
	GetLotteryForUpdateFunc func(ctx context.Context, db bun.IDB, id uuid.UUID) (*lotterydb.Lottery, error)
	UpdateLotteryFunc       func(ctx context.Context, db bun.IDB, lottery *lotterydb.Lottery) error
	InsertEntryFunc         func(ctx context.Context, db bun.IDB, entry *lotterydb.Entry) error
	InsertTransferFunc      func(ctx context.Context, db bun.IDB, transfer *lotterydb.Transfer) error
	InsertDrawFunc          func(ctx context.Context, db bun.IDB, draw *lotterydb.Draw) error
}

func NewFakeLotteryRepo() *FakeLotteryRepo {
	return &FakeLotteryRepo{
		trace:     []string{},
		lotteries: map[uuid.UUID]lotterydb.Lottery{},
	}
}

func (f *FakeLotteryRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeLotteryRepo) CreateLottery(ctx context.Context, db bun.IDB, lottery *lotterydb.Lottery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateLottery")
	if f.CreateLotteryFunc != nil {
		return f.CreateLotteryFunc(ctx, db, lottery)
	}
	f.lotteries[lottery.ID] = *lottery
	return nil
}

func (f *FakeLotteryRepo) GetLottery(ctx context.Context, db bun.IDB, id uuid.UUID) (*lotterydb.Lottery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetLottery")
	if f.GetLotteryFunc != nil {
		return f.GetLotteryFunc(ctx, db, id)
	}
	return f.get(id)
}

func (f *FakeLotteryRepo) GetLotteryForUpdate(ctx context.Context, db bun.IDB, id uuid.UUID) (*lotterydb.Lottery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetLotteryForUpdate")
	if f.GetLotteryForUpdateFunc != nil {
		return f.GetLotteryForUpdateFunc(ctx, db, id)
	}
	return f.get(id)
}

func (f *FakeLotteryRepo) get(id uuid.UUID) (*lotterydb.Lottery, error) {
	row, ok := f.lotteries[id]
	if !ok {
		return nil, lotterydb.ErrNotFound
	}
	return &row, nil
}

func (f *FakeLotteryRepo) UpdateLottery(ctx context.Context, db bun.IDB, lottery *lotterydb.Lottery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateLottery")
	if f.UpdateLotteryFunc != nil {
		return f.UpdateLotteryFunc(ctx, db, lottery)
	}
	if _, ok := f.lotteries[lottery.ID]; !ok {
		return lotterydb.ErrNotFound
	}
	f.lotteries[lottery.ID] = *lottery
	return nil
}

func (f *FakeLotteryRepo) ListLotteries(ctx context.Context, db bun.IDB, limit int) ([]*lotterydb.Lottery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListLotteries")
	var out []*lotterydb.Lottery
	for _, row := range f.lotteries {
		row := row
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeLotteryRepo) ListEntries(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, roundNumber int64) ([]*lotterydb.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListEntries")
	var out []*lotterydb.Entry
	for _, e := range f.entries {
		if e.LotteryID == lotteryID && e.RoundNumber == roundNumber {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (f *FakeLotteryRepo) InsertEntry(ctx context.Context, db bun.IDB, entry *lotterydb.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("InsertEntry")
	if f.InsertEntryFunc != nil {
		return f.InsertEntryFunc(ctx, db, entry)
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *FakeLotteryRepo) DeleteEntries(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, roundNumber int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteEntries")
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.LotteryID == lotteryID && e.RoundNumber == roundNumber {
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return nil
}

func (f *FakeLotteryRepo) InsertTransfer(ctx context.Context, db bun.IDB, transfer *lotterydb.Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("InsertTransfer")
	if f.InsertTransferFunc != nil {
		return f.InsertTransferFunc(ctx, db, transfer)
	}
	f.transfers = append(f.transfers, *transfer)
	return nil
}

func (f *FakeLotteryRepo) DeleteTransfer(ctx context.Context, db bun.IDB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteTransfer")
	kept := f.transfers[:0]
	for _, t := range f.transfers {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	f.transfers = kept
	return nil
}

func (f *FakeLotteryRepo) ListPendingTransfers(ctx context.Context, db bun.IDB, lotteryID uuid.UUID) ([]*lotterydb.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListPendingTransfers")
	var out []*lotterydb.Transfer
	for _, t := range f.transfers {
		if t.LotteryID == lotteryID && t.Status == lotterydb.TransferPending {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (f *FakeLotteryRepo) MarkTransferSettled(ctx context.Context, db bun.IDB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MarkTransferSettled")
	for i := range f.transfers {
		if f.transfers[i].ID == id && f.transfers[i].Status == lotterydb.TransferPending {
			f.transfers[i].Status = lotterydb.TransferSettled
			return nil
		}
	}
	return lotterydb.ErrNotFound
}

func (f *FakeLotteryRepo) ListTransfers(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, limit int) ([]*lotterydb.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTransfers")
	var out []*lotterydb.Transfer
	for i := len(f.transfers) - 1; i >= 0; i-- {
		t := f.transfers[i]
		if t.LotteryID == lotteryID {
			out = append(out, &t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeLotteryRepo) InsertDraw(ctx context.Context, db bun.IDB, draw *lotterydb.Draw) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("InsertDraw")
	if f.InsertDrawFunc != nil {
		return f.InsertDrawFunc(ctx, db, draw)
	}
	f.draws = append(f.draws, *draw)
	return nil
}

func (f *FakeLotteryRepo) ListDraws(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, limit int) ([]*lotterydb.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListDraws")
	var out []*lotterydb.Draw
	for i := len(f.draws) - 1; i >= 0; i-- {
		d := f.draws[i]
		if d.LotteryID == lotteryID {
			out = append(out, &d)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Accessors for assertions ---

func (f *FakeLotteryRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeLotteryRepo) Transfers() []lotterydb.Transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]lotterydb.Transfer, len(f.transfers))
	copy(out, f.transfers)
	return out
}

func (f *FakeLotteryRepo) Entries() []lotterydb.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]lotterydb.Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

var _ lotterydb.Repository = (*FakeLotteryRepo)(nil)

// ------------------------
// Fake Scheduler
// ------------------------

type scheduledDraw struct {
	LotteryID   uuid.UUID
	RoundNumber uint64
	DrawTime    time.Time
}

type FakeScheduler struct {
	mu          sync.Mutex
	scheduled   []scheduledDraw
	rescheduled []scheduledDraw
	cancelled   []uuid.UUID
}

func (f *FakeScheduler) ScheduleDraw(_ context.Context, lotteryID uuid.UUID, roundNumber uint64, drawTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduledDraw{lotteryID, roundNumber, drawTime})
	return nil
}

func (f *FakeScheduler) RescheduleDraw(_ context.Context, lotteryID uuid.UUID, roundNumber uint64, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = append(f.rescheduled, scheduledDraw{lotteryID, roundNumber, runAt})
	return nil
}

func (f *FakeScheduler) CancelDrawJobs(_ context.Context, lotteryID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, lotteryID)
	return nil
}

var _ DrawScheduler = (*FakeScheduler)(nil)

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *FakePublisher) Publish(topic string, messages ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for range messages {
		f.topics = append(f.topics, topic)
	}
	return nil
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.topics))
	copy(out, f.topics)
	return out
}

// ------------------------
// Fixtures
// ------------------------

type fixedRandom uint8

func (r fixedRandom) WinningNumber(context.Context, lotterydomain.DrawContext) (uint8, error) {
	return uint8(r), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
