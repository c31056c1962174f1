package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/numbers-lottery/app"
	"github.com/Black-And-White-Club/numbers-lottery/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := &app.App{}
	if err := application.Initialize(ctx, cfg); err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Close(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	if runErr != nil {
		log.Fatalf("Application stopped: %v", runErr)
	}
	log.Println("Application shut down gracefully.")
}
