package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/numbers-lottery/app/eventbus"
	"github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery"
	lotteryqueue "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/queue"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability/attr"
	"github.com/Black-And-White-Club/numbers-lottery/config"
	"github.com/Black-And-White-Club/numbers-lottery/db/bundb"
	"github.com/Black-And-White-Club/numbers-lottery/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// App owns the process wide resources and the lottery module.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Router        *message.Router
	Queue         *lotteryqueue.Service
	LotteryModule *lottery.Module
	Tokens        jwt.Service
	HTTPServer    *http.Server

	wg sync.WaitGroup
}

// Initialize connects every dependency and builds the module.
func (app *App) Initialize(ctx context.Context, cfg *config.Config) error {
	app.Config = cfg

	obs, err := observability.Init(ctx, config.ToObsConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	app.Observability = obs
	logger := obs.Provider.Logger

	app.DB, err = bundb.Open(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return err
	}

	if cfg.NATS.URL == "" {
		logger.Warn("NATS_URL not set, using in-process event bus")
		app.EventBus = eventbus.NewInMemoryEventBus(logger)
	} else {
		app.EventBus, err = eventbus.NewEventBus(ctx, cfg.NATS.URL, cfg.NATS.QueueGroup, logger)
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
	}

	app.Router, err = message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create Watermill router: %w", err)
	}

	var queue lotteryqueue.QueueService
	if cfg.Lottery.AutoDraw {
		app.Queue, err = lotteryqueue.NewService(ctx, app.DB, logger, cfg.Postgres.DSN, obs.Registry.LotteryMetrics, app.EventBus)
		if err != nil {
			return fmt.Errorf("failed to create draw queue: %w", err)
		}
		queue = app.Queue
	}

	app.LotteryModule, err = lottery.NewLotteryModule(ctx, cfg, obs, app.DB, app.EventBus, app.Router, queue)
	if err != nil {
		return fmt.Errorf("failed to initialize lottery module: %w", err)
	}

	app.Tokens = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.DefaultTTL)
	app.HTTPServer = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Handler builds the HTTP handler tree.
func (app *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", app.healthz)
	app.LotteryModule.Routes(r, app.Tokens)
	return r
}

func (app *App) healthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"database": "ok"}
	code := http.StatusOK
	if err := app.DB.PingContext(r.Context()); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if app.Queue != nil {
		status["queue"] = "ok"
		if err := app.Queue.HealthCheck(r.Context()); err != nil {
			status["queue"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// Run starts the router, the queue, the HTTP server and the metrics
// endpoint, and blocks until ctx is cancelled or one of them fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Provider.Logger
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 4)

	app.wg.Add(1)
	go app.LotteryModule.Run(ctx, &app.wg)

	go func() {
		if err := app.Router.Run(ctx); err != nil {
			errs <- fmt.Errorf("router: %w", err)
		}
	}()

	if app.Queue != nil {
		if err := app.Queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start draw queue: %w", err)
		}
	}

	go func() {
		if err := app.Observability.ServeMetrics(ctx); err != nil {
			errs <- err
		}
	}()

	go func() {
		logger.Info("Starting HTTP server", attr.String("address", app.HTTPServer.Addr))
		if err := app.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		logger.Error("Component failed", attr.Error(err))
		return err
	}
}

// Close stops every component in reverse start order.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if app.HTTPServer != nil {
		if err := app.HTTPServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if app.Queue != nil {
		if err := app.Queue.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draw queue: %w", err))
		}
	}
	if app.LotteryModule != nil {
		if err := app.LotteryModule.Close(); err != nil {
			errs = append(errs, err)
		}
		app.wg.Wait()
	}
	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("router: %w", err))
		}
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if app.Observability.Provider != nil {
		if err := app.Observability.Provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
