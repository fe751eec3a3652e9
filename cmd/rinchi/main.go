// Command rinchi converts between MDL reaction files and RInChI and runs
// the API server and batch worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/IUPAC-InChI/RInChI/internal/interfaces/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}, os.Args[1:])
	stop()
	os.Exit(code)
}
