// Command apiserver serves the RInChI HTTP API.
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
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	stateless := flag.Bool("stateless", false, "serve only the conversion endpoints")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
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

	logger.Info("starting rinchi api server", logging.String("version", version), logging.Int("port", cfg.Server.Port))
	if err := app.RunAPIServer(ctx, cfg, logger, app.APIServerOptions{Version: version, Stateless: *stateless}); err != nil {
		logger.Error("api server exited", logging.Error(err))
		stop()
		os.Exit(1)
	}
	logger.Info("api server stopped")
}
