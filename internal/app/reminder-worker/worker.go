// Package reminderworker собирает процесс воркера: Temporal-воркер с workflow напоминаний,
// фоновое истечение подписок, метрики и gRPC health.
package reminderworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/streadway/amqp"
	temporalclient "go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/grpc/health"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/dispatcher"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/sweeper"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// App процесс воркера напоминаний.
type App struct {
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	conn       *amqp.Connection
	ch         *amqp.Channel
	tc         temporalclient.Client
	worker     worker.Worker
	sweeper    *sweeper.Sweeper
	metricsSrv *http.Server
	health     *health.Server
}

// New подключается к зависимостям и регистрирует workflow и activity.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.reminderworker.New"

	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	var err error
	if a.db, err = repository.New(ctx, cfg.StorageConnectionString); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = metrics.RegisterDBStats(a.db.DB, "subscriptions"); err != nil {
		logger.Warn("failed to register db stats collector", sl.Err(err))
	}
	if a.cache, err = cache.InitServer(ctx, cfg.RedisConnection); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if a.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.tc, err = temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.worker = worker.New(a.tc, cfg.ReminderTaskQueue, worker.Options{})
	a.worker.RegisterWorkflowWithOptions(reminder.SubscriptionReminderWorkflow, workflow.RegisterOptions{
		Name: reminder.WorkflowName,
	})
	a.worker.RegisterActivity(reminder.NewActivities(a.db, dispatcher.New(a.ch, logger), logger))

	a.sweeper = sweeper.New(a.db, a.cache, a.cache.Db, cfg.Sweeper, logger)
	a.metricsSrv = metrics.NewServer(cfg.MetricsAddress)
	a.health = health.New(cfg.GRPCHealthAddress, logger)

	ok = true
	return a, nil
}

// Run запускает воркер и служебные серверы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	const op = "app.reminderworker.Run"
	defer a.close()

	if err := a.worker.Start(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer a.worker.Stop()

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("starting metrics server", slog.String("address", a.metricsSrv.Addr))
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	go func() {
		if err := a.health.Run(ctx); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()
	a.health.SetServing(true)
	a.logger.Info("reminder worker started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	a.logger.Info("shutting down reminder worker")
	a.health.SetServing(false)
	<-a.sweeper.Stop().Done()
	if err := a.metricsSrv.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}
	return runErr
}

func (a *App) close() {
	if a.tc != nil {
		a.tc.Close()
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
	}
}
