package lottery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/numbers-lottery/app/eventbus"
	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotteryhandlers "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/handlers"
	lotteryqueue "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/queue"
	"github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/randomness"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	lotteryrouter "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/router"
	lotterytime "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/time_utils"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability"
	"github.com/Black-And-White-Club/numbers-lottery/config"
	"github.com/Black-And-White-Club/numbers-lottery/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the lottery module.
type Module struct {
	EventBus       eventbus.EventBus
	LotteryService lotteryservice.Service
	LotteryRouter  *lotteryrouter.LotteryRouter
	HTTPHandlers   *lotteryhandlers.LotteryHTTPHandlers
	logger         *slog.Logger
	config         *config.Config
	cancelFunc     context.CancelFunc
}

// NewLotteryModule creates a new instance of the lottery module. queue may
// be nil, in which case draws are never scheduled automatically.
func NewLotteryModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	db *bun.DB,
	eventBus eventbus.EventBus,
	router *message.Router,
	queue lotteryqueue.QueueService,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer
	metrics := obs.Registry.LotteryMetrics

	logger.Info("lottery.NewLotteryModule called")

	random, err := randomness.New(cfg.Lottery.Randomness, []byte(cfg.Lottery.RandomSalt), cfg.Lottery.RandomSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to create random source: %w", err)
	}

	opts := lotteryservice.Options{
		PayoutPolicy:    cfg.Lottery.PayoutPolicy,
		PrizeMultiplier: cfg.Lottery.PrizeMultiplier,
		Random:          random,
		AutoDraw:        cfg.Lottery.AutoDraw && queue != nil,
	}
	var jobs lotteryhandlers.JobLister
	if queue != nil {
		opts.Scheduler = queue
		jobs = queue
	}

	service, err := lotteryservice.NewLotteryService(
		lotterydb.NewRepository(db), logger, metrics, tracer, db, eventBus, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lottery service: %w", err)
	}

	lotteryRouter := lotteryrouter.NewLotteryRouter(logger, router, eventBus, eventBus, tracer, obs.Registry.Prometheus)
	if err := lotteryRouter.Configure(ctx, service, metrics); err != nil {
		return nil, fmt.Errorf("failed to configure lottery router: %w", err)
	}

	return &Module{
		EventBus:       eventBus,
		LotteryService: service,
		LotteryRouter:  lotteryRouter,
		HTTPHandlers:   lotteryhandlers.NewLotteryHTTPHandlers(service, jobs, logger, lotterytime.NewParser()),
		logger:         logger,
		config:         cfg,
	}, nil
}

// Routes mounts the lottery HTTP API on r.
func (m *Module) Routes(r chi.Router, tokens jwt.Service) {
	m.HTTPHandlers.Routes(r, tokens, lotteryhandlers.RouteConfig{
		AllowedOrigins: m.config.HTTP.AllowedOrigins,
		RateLimit:      m.config.HTTP.RateLimit,
		RateBurst:      m.config.HTTP.RateBurst,
	})
}

func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting lottery module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("Lottery module goroutine stopped")
}

func (m *Module) Close() error {
	m.logger.Info("Stopping lottery module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.logger.Info("Lottery module stopped")
	return nil
}
