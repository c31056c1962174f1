package lotteryservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/numbers-lottery/app/eventbus"
	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	lotterymetrics "github.com/Black-And-White-Club/numbers-lottery/app/observability/metrics/lottery"
	"github.com/Black-And-White-Club/numbers-lottery/app/results"
	pkgeventbus "github.com/Black-And-White-Club/numbers-lottery/pkg/eventbus"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "LotteryService"

// Options configures the lottery rules a LotteryService applies to new
// lotteries and the collaborators it calls.
type Options struct {
	PayoutPolicy    string
	PrizeMultiplier uint64
	Random          lotterydomain.RandomSource
	Clock           lotterydomain.Clock
	// Wallet, when set, executes payout and withdrawal transfers after they
	// are journaled. A wallet error before any value has gone out rolls the
	// operation back. Later failures leave pending payouts to settle.
	Wallet    lotterydomain.Transferer
	Scheduler DrawScheduler
	AutoDraw  bool
}

// LotteryService implements the Service interface.
type LotteryService struct {
	repo      lotterydb.Repository
	logger    *slog.Logger
	metrics   lotterymetrics.LotteryMetrics
	tracer    trace.Tracer
	db        *bun.DB
	publisher message.Publisher

	policy    lotterydomain.PayoutPolicy
	random    lotterydomain.RandomSource
	clock     lotterydomain.Clock
	wallet    lotterydomain.Transferer
	scheduler DrawScheduler
	autoDraw  bool

	locksMu sync.Mutex
	locks   map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLotteryService creates a new LotteryService.
func NewLotteryService(
	repo lotterydb.Repository,
	logger *slog.Logger,
	metrics lotterymetrics.LotteryMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	publisher message.Publisher,
	opts Options,
) (*LotteryService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = lotterymetrics.NewNoop()
	}
	if opts.Random == nil {
		return nil, errors.New("lottery service: random source is required")
	}
	multiplier := opts.PrizeMultiplier
	if multiplier == 0 {
		multiplier = lotterydomain.DefaultPrizeMultiplier
	}
	policy, err := lotterydomain.NewPayoutPolicy(opts.PayoutPolicy, multiplier)
	if err != nil {
		return nil, fmt.Errorf("lottery service: %w", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = lotterydomain.SystemClock{}
	}
	return &LotteryService{
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		publisher: publisher,
		policy:    policy,
		random:    opts.Random,
		clock:     clock,
		wallet:    opts.Wallet,
		scheduler: opts.Scheduler,
		autoDraw:  opts.AutoDraw,
		locks:     make(map[uuid.UUID]*lockEntry),
	}, nil
}

var _ Service = (*LotteryService)(nil)

// lock serialises operations on one lottery inside this process. Row locks
// cover other replicas. An entry lives only while someone holds or waits on it.
func (s *LotteryService) lock(id uuid.UUID) func() {
	s.locksMu.Lock()
	e, ok := s.locks[id]
	if !ok {
		e = &lockEntry{}
		s.locks[id] = e
	}
	e.refs++
	s.locksMu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		s.locksMu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// loaded is a lottery rebuilt from its row and live entries.
type loaded struct {
	row     *lotterydb.Lottery
	lottery *lotterydomain.Lottery
}

func (s *LotteryService) load(ctx context.Context, db bun.IDB, id uuid.UUID, forUpdate bool) (*loaded, error) {
	var (
		row *lotterydb.Lottery
		err error
	)
	if forUpdate {
		row, err = s.repo.GetLotteryForUpdate(ctx, db, id)
	} else {
		row, err = s.repo.GetLottery(ctx, db, id)
	}
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, db, id, row.RoundNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	policy, err := lotterydomain.NewPayoutPolicy(row.PayoutPolicy, uint64(row.Multiplier))
	if err != nil {
		return nil, fmt.Errorf("lottery %s: %w", id, err)
	}
	state := lotterydomain.State{
		ID:    row.ID,
		Owner: common.HexToAddress(row.Owner),
		Round: lotterydomain.Round{
			Number:   uint64(row.RoundNumber),
			EntryFee: row.EntryFee,
			DrawTime: row.DrawTime.UTC(),
			Phase:    lotterydomain.Phase(row.Phase),
		},
		Pool:          row.PoolBalance,
		WinningNumber: uint8(row.WinningNumber),
		Entries:       make([]lotterydomain.Entry, 0, len(entries)),
	}
	for _, e := range entries {
		state.Entries = append(state.Entries, lotterydomain.Entry{
			Bettor: common.HexToAddress(e.Bettor),
			Number: uint8(e.Number),
			Stake:  e.Stake,
		})
	}

	l, err := lotterydomain.Restore(state, lotterydomain.Deps{
		Policy:     policy,
		Random:     s.random,
		Clock:      s.clock,
		Transferer: s.transferer(db, id),
	})
	if err != nil {
		return nil, err
	}
	return &loaded{row: row, lottery: l}, nil
}

// transferer journals an outbound transfer on db and then hands it to the
// wallet, if one is configured. A refused transfer leaves no journal row.
func (s *LotteryService) transferer(db bun.IDB, lotteryID uuid.UUID) lotterydomain.Transferer {
	return lotterydomain.TransferFunc(func(ctx context.Context, t lotterydomain.Transfer) error {
		row, err := s.journal(ctx, db, lotteryID, t, lotterydb.TransferSettled)
		if err != nil {
			return err
		}
		if s.wallet == nil {
			return nil
		}
		if err := s.wallet.Transfer(ctx, t); err != nil {
			if derr := s.repo.DeleteTransfer(ctx, db, row.ID); derr != nil {
				return errors.Join(err, derr)
			}
			return err
		}
		return nil
	})
}

func (s *LotteryService) journal(ctx context.Context, db bun.IDB, lotteryID uuid.UUID, t lotterydomain.Transfer, status string) (*lotterydb.Transfer, error) {
	row := &lotterydb.Transfer{
		ID:           uuid.New(),
		LotteryID:    lotteryID,
		RoundNumber:  int64(t.RoundNumber),
		Kind:         string(t.Kind),
		Counterparty: t.To.Hex(),
		Amount:       t.Amount,
		Status:       status,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertTransfer(ctx, db, row); err != nil {
		return nil, err
	}
	return row, nil
}

// save copies the lottery's round, pool and winning number onto its row.
func (s *LotteryService) save(ctx context.Context, db bun.IDB, ld *loaded) error {
	state := ld.lottery.State()
	ld.row.EntryFee = state.Round.EntryFee
	ld.row.DrawTime = state.Round.DrawTime
	ld.row.Phase = int16(state.Round.Phase)
	ld.row.RoundNumber = int64(state.Round.Number)
	ld.row.PoolBalance = state.Pool
	ld.row.WinningNumber = int16(state.WinningNumber)
	if err := s.repo.UpdateLottery(ctx, db, ld.row); err != nil {
		return fmt.Errorf("failed to save lottery: %w", err)
	}
	return nil
}

// event is a message to publish once the transaction has committed.
type event struct {
	topic     string
	lotteryID uuid.UUID
	payload   any
}

// publish sends each event on its base topic and on the lottery-scoped
// topic. State is already committed, so failures are logged only.
func (s *LotteryService) publish(ctx context.Context, events []event) {
	if s.publisher == nil {
		return
	}
	for _, ev := range events {
		msg, err := eventbus.NewMessage(ctx, ev.payload)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to build event", attr.String("topic", ev.topic), attr.Error(err))
			continue
		}
		if err := s.publisher.Publish(ev.topic, msg); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish event",
				attr.ExtractCorrelationID(ctx),
				attr.String("topic", ev.topic),
				attr.LotteryID(ev.lotteryID),
				attr.Error(err),
			)
			continue
		}
		scoped, err := eventbus.NewMessage(ctx, ev.payload)
		if err != nil {
			continue
		}
		if err := pkgeventbus.PublishWithLotteryScope(s.publisher, ev.topic, ev.lotteryID.String(), scoped); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish lottery-scoped event",
				attr.String("topic", ev.topic),
				attr.LotteryID(ev.lotteryID),
				attr.Error(err),
			)
		}
	}
}

func (s *LotteryService) scheduleDraw(ctx context.Context, lotteryID uuid.UUID, round lotterydomain.Round) {
	if !s.autoDraw || s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleDraw(ctx, lotteryID, round.Number, round.DrawTime); err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule draw",
			attr.ExtractCorrelationID(ctx),
			attr.LotteryID(lotteryID),
			attr.Uint64("round_number", round.Number),
			attr.Error(err),
		)
	}
}

// rejectOrFail turns a domain rejection or a missing lottery into a failure
// result and anything else into an infrastructure error.
func rejectOrFail[S any](err error, what string) (results.OperationResult[S, error], error) {
	if lotterydomain.IsRejection(err) || errors.Is(err, lotterydb.ErrNotFound) {
		return results.FailureResult[S, error](err), nil
	}
	return results.OperationResult[S, error]{}, fmt.Errorf("%s: %w", what, err)
}

// unwrap converts a telemetry-wrapped result into the public return shape.
func unwrap[S any](result results.OperationResult[*S, error], err error) (*S, error) {
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	if result.Success == nil {
		return nil, nil
	}
	return *result.Success, nil
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *LotteryService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *LotteryService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
