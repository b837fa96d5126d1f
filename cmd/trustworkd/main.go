// Command trustworkd runs the TrustWork escrow ledger as an HTTP service.
// Configuration comes from TRUSTWORK_* environment variables.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexora-w/TrustWork/daemon"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("trustworkd exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := daemon.LoadConfig(os.LookupEnv)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(cfg, daemon.WithLogger(logger))
	if err := d.Init(ctx); err != nil {
		return err
	}
	return d.Run(ctx)
}

func logLevel() slog.Level {
	var lvl slog.Level
	if v, ok := os.LookupEnv(daemon.EnvPrefix + "LOG_LEVEL"); ok {
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return slog.LevelInfo
}
