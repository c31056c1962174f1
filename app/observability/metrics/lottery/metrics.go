package lotterymetrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LotteryMetrics records service level metrics for the lottery module.
type LotteryMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	RecordPoolBalance(ctx context.Context, lotteryID string, balance float64)
	RecordEntrySubmitted(ctx context.Context, number int)
	RecordDraw(ctx context.Context, winningNumber int, winners int, payout float64)
}

type prometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	pool      *prometheus.GaugeVec
	entries   *prometheus.CounterVec
	draws     *prometheus.CounterVec
	winners   prometheus.Counter
	payouts   prometheus.Counter
}

// NewPrometheus registers the lottery collectors on reg.
func NewPrometheus(reg prometheus.Registerer) LotteryMetrics {
	m := &prometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "operation_attempts_total",
			Help:      "Operations attempted, by operation and service.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "operation_success_total",
			Help:      "Operations completed without infrastructure error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "operation_failure_total",
			Help:      "Operations that ended in an infrastructure error or panic.",
		}, []string{"operation", "service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lottery",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		pool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lottery",
			Name:      "pool_balance",
			Help:      "Last observed pool balance in the smallest unit (float approximation).",
		}, []string{"lottery_id"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "entries_submitted_total",
			Help:      "Accepted entries by guessed number.",
		}, []string{"number"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "draws_total",
			Help:      "Settled draws by winning number.",
		}, []string{"winning_number"}),
		winners: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "winners_total",
			Help:      "Winning entries paid.",
		}),
		payouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "payout_total",
			Help:      "Sum of prizes paid (float approximation).",
		}),
	}

	reg.MustRegister(m.attempts, m.successes, m.failures, m.duration, m.pool, m.entries, m.draws, m.winners, m.payouts)
	return m
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.duration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordPoolBalance(_ context.Context, lotteryID string, balance float64) {
	m.pool.WithLabelValues(lotteryID).Set(balance)
}

func (m *prometheusMetrics) RecordEntrySubmitted(_ context.Context, number int) {
	m.entries.WithLabelValues(strconv.Itoa(number)).Inc()
}

func (m *prometheusMetrics) RecordDraw(_ context.Context, winningNumber int, winners int, payout float64) {
	m.draws.WithLabelValues(strconv.Itoa(winningNumber)).Inc()
	m.winners.Add(float64(winners))
	m.payouts.Add(payout)
}

type noop struct{}

// NewNoop returns metrics that discard everything.
func NewNoop() LotteryMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (noop) RecordOperationFailure(context.Context, string, string)                 {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noop) RecordPoolBalance(context.Context, string, float64)                     {}
func (noop) RecordEntrySubmitted(context.Context, int)                              {}
func (noop) RecordDraw(context.Context, int, int, float64)                          {}
