package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dkravets/kitafeed/internal/buildinfo"
	"github.com/dkravets/kitafeed/internal/client/cli"
	"github.com/dkravets/kitafeed/internal/client/config"
	"github.com/dkravets/kitafeed/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)
}
