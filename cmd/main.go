package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/enrichr/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "enrichr",
		Usage:    "Enrich a track dataset with Spotify release year, artwork, previews and ISRC regions",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		if errors.Is(err, context.Canceled) {
			logger.Warn("run cancelled")
			os.Exit(130)
		}
		logger.Fatalf("application error: %v", err)
	}
}
