// Command worker consumes batch jobs from Kafka, converts the reaction files
// they reference and publishes the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IUPAC-InChI/RInChI/internal/app"
	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: RINCHI_* environment only)")
	concurrency := flag.Int("concurrency", 0, "parallel jobs (overrides worker.concurrency)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting rinchi worker", logging.String("version", version))
	if err := app.RunWorker(ctx, cfg, logger, app.WorkerOptions{Version: version, Concurrency: *concurrency}); err != nil {
		logger.Error("worker exited", logging.Error(err))
		stop()
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
