// Package observability builds the logger, tracer and metric registry used by
// every module.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	lotterymetrics "github.com/Black-And-White-Club/numbers-lottery/app/observability/metrics/lottery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds observability settings.
type Config struct {
	ServiceName    string
	Environment    string
	Version        string
	MetricsAddress string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}

// Provider owns process-wide resources that need shutting down.
type Provider struct {
	Logger   *slog.Logger
	shutdown []func(context.Context) error
}

// Registry exposes the instruments handed to modules.
type Registry struct {
	Tracer         trace.Tracer
	Prometheus     *prometheus.Registry
	LotteryMetrics lotterymetrics.LotteryMetrics
}

// Observability bundles Provider and Registry.
type Observability struct {
	Provider *Provider
	Registry *Registry
	config   Config
}

// Init sets up logging, tracing and metrics.
func Init(ctx context.Context, cfg Config) (Observability, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "numbers-lottery"
	}

	logger := NewLogger(os.Stdout, cfg.Environment).With(
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.Version),
	)
	provider := &Provider{Logger: logger}

	var tracer trace.Tracer
	if cfg.OTLPEndpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return Observability{}, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

		rate := cfg.SampleRate
		if rate <= 0 {
			rate = 0.1
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
			sdktrace.WithResource(resource.NewSchemaless(
				attribute.String("service.name", cfg.ServiceName),
				attribute.String("service.version", cfg.Version),
				attribute.String("deployment.environment", cfg.Environment),
			)),
		)
		otel.SetTracerProvider(tp)
		provider.shutdown = append(provider.shutdown, tp.Shutdown)
		tracer = tp.Tracer(cfg.ServiceName)
		logger.InfoContext(ctx, "Tracing enabled", slog.String("otlp_endpoint", cfg.OTLPEndpoint))
	} else {
		tracer = noop.NewTracerProvider().Tracer(cfg.ServiceName)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return Observability{
		Provider: provider,
		Registry: &Registry{
			Tracer:         tracer,
			Prometheus:     promRegistry,
			LotteryMetrics: lotterymetrics.NewPrometheus(promRegistry),
		},
		config: cfg,
	}, nil
}

// NewNoop returns an Observability that logs nowhere and records nothing.
func NewNoop() Observability {
	return Observability{
		Provider: &Provider{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
		Registry: &Registry{
			Tracer:         noop.NewTracerProvider().Tracer("noop"),
			LotteryMetrics: lotterymetrics.NewNoop(),
		},
	}
}

// NewLogger returns a text logger in development and a JSON logger otherwise.
func NewLogger(w io.Writer, environment string) *slog.Logger {
	if environment == "development" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// ServeMetrics exposes the Prometheus registry until ctx is cancelled.
// It is a no-op when no metrics address is configured.
func (o Observability) ServeMetrics(ctx context.Context) error {
	if o.config.MetricsAddress == "" || o.Registry.Prometheus == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(o.Registry.Prometheus, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              o.config.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	o.Provider.Logger.Info("Serving metrics", slog.String("address", o.config.MetricsAddress))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown flushes exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
