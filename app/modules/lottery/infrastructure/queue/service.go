package lotteryqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

// QueueName is the River queue draw jobs run on.
const QueueName = "lottery"

// Metrics is the subset of lottery metrics the queue records.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// QueueService interface defines the contract for job scheduling operations
type QueueService interface {
	// ScheduleDraw enqueues a draw for roundNumber at drawTime. Past draw
	// times run as soon as a worker is free.
	ScheduleDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64, drawTime time.Time) error
	// RescheduleDraw enqueues another draw job for a round whose first job
	// ran before the draw time. It bypasses the round's uniqueness.
	RescheduleDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64, runAt time.Time) error
	// CancelDrawJobs cancels every pending draw job of a lottery
	CancelDrawJobs(ctx context.Context, lotteryID uuid.UUID) error
	// GetScheduledJobs returns the draw jobs of a lottery in schedule order
	GetScheduledJobs(ctx context.Context, lotteryID uuid.UUID) ([]JobInfo, error)
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	// Start starts the queue service
	Start(ctx context.Context) error
	// Stop stops the queue service
	Stop(ctx context.Context) error
}

// Ensure Service implements QueueService
var _ QueueService = (*Service)(nil)

// Service schedules lottery draws using River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics Metrics
}

// NewService creates a River client on its own pgx pool, since River does
// not run on database/sql.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics Metrics, publisher message.Publisher) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_lottery_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing lottery queue service")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewDrawWorker(ctxLogger, publisher))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			QueueName:          {MaxWorkers: 25},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Lottery queue service initialized successfully")
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}, nil
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))
	s.logger.Info("Lottery queue service started")
	return nil
}

// Stop stops the River client and closes its pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")

	err := s.client.Stop(ctx)
	s.pool.Close()
	if err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.metrics.RecordOperationDuration(ctx, "stop_service", "river", time.Since(start))
	s.logger.Info("Lottery queue service stopped")
	return nil
}

// ScheduleDraw inserts a DrawJob at drawTime. Args uniqueness keeps a
// round from being scheduled twice.
func (s *Service) ScheduleDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64, drawTime time.Time) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_draw", "river")

	ctxLogger := s.logger.With(
		attr.LotteryID(lotteryID),
		attr.Uint64("round_number", roundNumber),
		attr.Time("draw_time", drawTime),
		attr.String("operation", "schedule_draw"),
	)

	jobResult, err := s.client.Insert(ctx, DrawJob{LotteryID: lotteryID, RoundNumber: roundNumber}, &river.InsertOpts{
		Queue:       QueueName,
		ScheduledAt: drawTime,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to schedule draw job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_draw", "river")
		return fmt.Errorf("failed to schedule draw job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_draw", "river")
	s.metrics.RecordOperationDuration(ctx, "schedule_draw", "river", time.Since(start))

	ctxLogger.Info("Draw job scheduled",
		attr.Duration("delay", time.Until(drawTime)),
		attr.Int64("job_id", jobResult.Job.ID),
		attr.Bool("duplicate", jobResult.UniqueSkippedAsDuplicate),
	)
	return nil
}

// RescheduleDraw inserts a DrawJob at runAt without uniqueness, since the
// round's original job has already completed.
func (s *Service) RescheduleDraw(ctx context.Context, lotteryID uuid.UUID, roundNumber uint64, runAt time.Time) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "reschedule_draw", "river")

	jobResult, err := s.client.Insert(ctx, DrawJob{LotteryID: lotteryID, RoundNumber: roundNumber}, &river.InsertOpts{
		Queue:       QueueName,
		ScheduledAt: runAt,
	})
	if err != nil {
		s.logger.Error("Failed to reschedule draw job",
			attr.LotteryID(lotteryID),
			attr.Uint64("round_number", roundNumber),
			attr.Error(err),
		)
		s.metrics.RecordOperationFailure(ctx, "reschedule_draw", "river")
		return fmt.Errorf("failed to reschedule draw job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "reschedule_draw", "river")
	s.metrics.RecordOperationDuration(ctx, "reschedule_draw", "river", time.Since(start))
	s.logger.Info("Draw job rescheduled",
		attr.LotteryID(lotteryID),
		attr.Uint64("round_number", roundNumber),
		attr.Time("run_at", runAt),
		attr.Int64("job_id", jobResult.Job.ID),
	)
	return nil
}

type riverJobRow struct {
	ID          int64          `bun:"id"`
	Kind        string         `bun:"kind"`
	State       string         `bun:"state"`
	Args        map[string]any `bun:"args"`
	ScheduledAt *time.Time     `bun:"scheduled_at"`
	CreatedAt   time.Time      `bun:"created_at"`
	Attempt     int16          `bun:"attempt"`
	MaxAttempts int16          `bun:"max_attempts"`
}

// CancelDrawJobs cancels every pending draw job of a lottery.
func (s *Service) CancelDrawJobs(ctx context.Context, lotteryID uuid.UUID) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "cancel_draw_jobs", "river")

	ctxLogger := s.logger.With(
		attr.LotteryID(lotteryID),
		attr.String("operation", "cancel_draw_jobs"),
	)

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state").
		Where("kind = ?", DrawJobKind).
		Where("state IN (?, ?)", "available", "scheduled").
		Where("args->>'lottery_id' = ?", lotteryID.String()).
		Scan(ctx, &jobs)
	if err != nil {
		ctxLogger.Error("Failed to query jobs for cancellation", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "cancel_draw_jobs", "river")
		return fmt.Errorf("failed to query jobs for cancellation: %w", err)
	}

	cancelled := 0
	for _, job := range jobs {
		if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
			ctxLogger.Warn("Failed to cancel job", attr.Int64("job_id", job.ID), attr.Error(err))
			continue
		}
		cancelled++
	}

	if cancelled == len(jobs) {
		s.metrics.RecordOperationSuccess(ctx, "cancel_draw_jobs", "river")
	} else {
		s.metrics.RecordOperationFailure(ctx, "cancel_draw_jobs", "river")
	}
	s.metrics.RecordOperationDuration(ctx, "cancel_draw_jobs", "river", time.Since(start))

	ctxLogger.Info("Draw jobs cancellation completed",
		attr.Int("total_found", len(jobs)),
		attr.Int("cancelled_count", cancelled))
	return nil
}

// GetScheduledJobs lists a lottery's draw jobs in any state, soonest first.
func (s *Service) GetScheduledJobs(ctx context.Context, lotteryID uuid.UUID) ([]JobInfo, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "get_scheduled_jobs", "river")

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind = ?", DrawJobKind).
		Where("args->>'lottery_id' = ?", lotteryID.String()).
		Order("scheduled_at ASC NULLS LAST", "created_at ASC").
		Scan(ctx, &jobs)
	if err != nil {
		s.logger.Error("Failed to query scheduled jobs", attr.LotteryID(lotteryID), attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "get_scheduled_jobs", "river")
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}

	out := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		out[i] = jobInfo(lotteryID, job)
	}

	s.metrics.RecordOperationSuccess(ctx, "get_scheduled_jobs", "river")
	s.metrics.RecordOperationDuration(ctx, "get_scheduled_jobs", "river", time.Since(start))
	return out, nil
}

func jobInfo(lotteryID uuid.UUID, job riverJobRow) JobInfo {
	info := JobInfo{
		ID:          job.ID,
		Kind:        job.Kind,
		LotteryID:   lotteryID.String(),
		State:       job.State,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		Attempt:     int(job.Attempt),
		MaxAttempts: int(job.MaxAttempts),
	}
	if job.ScheduledAt != nil {
		info.ScheduledAt = job.ScheduledAt.Format(time.RFC3339)
	}
	// JSON numbers decode as float64.
	if round, ok := job.Args["round_number"].(float64); ok {
		info.RoundNumber = uint64(round)
	}
	return info
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "health_check", "river")

	if s.client == nil {
		s.metrics.RecordOperationFailure(ctx, "health_check", "river")
		return fmt.Errorf("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Where("kind = ?", DrawJobKind).
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "health_check", "river")
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "health_check", "river")
	s.metrics.RecordOperationDuration(ctx, "health_check", "river", time.Since(start))
	s.logger.Debug("Queue service health check passed", attr.Int("draw_jobs", count))
	return nil
}
