package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	reminderworker "github.com/magabrotheeeer/subscription-tracker/internal/app/reminder-worker"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting reminder worker",
		slog.String("env", cfg.Env),
		slog.String("task_queue", cfg.ReminderTaskQueue),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := reminderworker.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize reminder worker", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("reminder worker stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("reminder worker stopped gracefully")
}
