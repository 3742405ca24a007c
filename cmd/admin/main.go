package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sifan077/shrtnr/internal/cli"
	"github.com/sifan077/shrtnr/internal/infra/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := logger.ConfigFromEnv("admin")
	if cfg.Level == "" {
		cfg.Level = "warn"
	}
	logger.MustInit(cfg)
	defer func() { _ = logger.Sync() }()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
