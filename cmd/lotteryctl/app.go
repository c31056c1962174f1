package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/randomness"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
	lotteryreports "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/reports"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability"
	"github.com/Black-And-White-Club/numbers-lottery/config"
	"github.com/Black-And-White-Club/numbers-lottery/db/bundb"
	"github.com/Black-And-White-Club/numbers-lottery/pkg/jwt"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/trace/noop"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "lotteryctl",
		Usage: "operator tooling for numbers-lottery",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Commands: []*cli.Command{
			tokenCommand(),
			reportCommand(),
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for an address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Required: true, Usage: "caller address (token subject)"},
			&cli.StringFlag{Name: "role", Value: string(jwt.RoleOperator)},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
			&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true},
			&cli.StringFlag{Name: "issuer", EnvVars: []string{"JWT_ISSUER"}, Value: "numbers-lottery"},
		},
		Action: func(c *cli.Context) error {
			addr, err := lotterydomain.ParseAddress(c.String("address"))
			if err != nil {
				return err
			}
			tokens := jwt.NewService(c.String("secret"), c.String("issuer"), c.Duration("ttl"))
			token, err := tokens.GenerateToken(addr.Hex(), jwt.Role(c.String("role")), c.Duration("ttl"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, token)
			return err
		},
	}
}

func reportCommand() *cli.Command {
	lotteryFlag := &cli.StringFlag{Name: "lottery", Required: true, Usage: "lottery id"}
	outFlag := &cli.StringFlag{Name: "out", Usage: "output file (defaults to a name derived from the lottery id)"}

	return &cli.Command{
		Name:  "report",
		Usage: "export lottery history",
		Subcommands: []*cli.Command{
			{
				Name:  "xlsx",
				Usage: "write a workbook of the lottery summary, draws and transfers",
				Flags: []cli.Flag{lotteryFlag, outFlag},
				Action: func(c *cli.Context) error {
					return withService(c, func(ctx context.Context, svc lotteryservice.Service, id uuid.UUID) ([]byte, string, error) {
						view, err := svc.GetLottery(ctx, id)
						if err != nil {
							return nil, "", err
						}
						draws, err := svc.ListDraws(ctx, id, 0)
						if err != nil {
							return nil, "", err
						}
						transfers, err := svc.ListTransfers(ctx, id, 0)
						if err != nil {
							return nil, "", err
						}
						data, err := lotteryreports.ExportXLSX(*view, draws, transfers)
						return data, "lottery-" + id.String() + ".xlsx", err
					})
				},
			},
			{
				Name:  "chart",
				Usage: "render entries per number or winning number history as PNG",
				Flags: []cli.Flag{
					lotteryFlag,
					outFlag,
					&cli.StringFlag{Name: "kind", Value: "entries", Usage: "entries|winning"},
				},
				Action: func(c *cli.Context) error {
					return withService(c, func(ctx context.Context, svc lotteryservice.Service, id uuid.UUID) ([]byte, string, error) {
						switch kind := c.String("kind"); kind {
						case "entries":
							view, err := svc.GetLottery(ctx, id)
							if err != nil {
								return nil, "", err
							}
							png, err := lotteryreports.EntriesChart(view.EntriesCounts)
							return png, "entries-" + id.String() + ".png", err
						case "winning":
							draws, err := svc.ListDraws(ctx, id, 0)
							if err != nil {
								return nil, "", err
							}
							png, err := lotteryreports.WinningNumbersChart(draws)
							return png, "winning-" + id.String() + ".png", err
						default:
							return nil, "", fmt.Errorf("unknown chart kind %q", kind)
						}
					})
				},
			},
		},
	}
}

type renderFunc func(ctx context.Context, svc lotteryservice.Service, id uuid.UUID) ([]byte, string, error)

// withService opens the database read path, renders and writes the output.
func withService(c *cli.Context, render renderFunc) error {
	id, err := uuid.Parse(c.String("lottery"))
	if err != nil {
		return fmt.Errorf("invalid lottery id: %w", err)
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := observability.NewLogger(os.Stderr, cfg.Observability.Environment)

	db, err := bundb.Open(c.Context, cfg.Postgres.DSN, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := readOnlyService(db, logger)
	if err != nil {
		return err
	}

	data, name, err := render(c.Context, svc, id)
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	_, err = fmt.Fprintf(c.App.Writer, "wrote %s (%d bytes)\n", out, len(data))
	return err
}

// readOnlyService builds a service for queries. It never draws, so the
// random source is never consulted.
func readOnlyService(db *bun.DB, logger *slog.Logger) (lotteryservice.Service, error) {
	return lotteryservice.NewLotteryService(
		lotterydb.NewRepository(db),
		logger,
		nil,
		noop.NewTracerProvider().Tracer("lotteryctl"),
		db,
		nil,
		lotteryservice.Options{Random: randomness.NewHashSource(nil)},
	)
}
