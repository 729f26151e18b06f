// Package sweeper по расписанию переводит просроченные активные подписки в expired.
// Между репликами воркера задача защищена распределённой блокировкой в Redis.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
)

// LockKey ключ блокировки задачи в Redis.
const LockKey = "lock:subscriptions:expire"

const runTimeout = 5 * time.Minute

// ErrLockHeld задачу уже выполняет другая реплика.
var ErrLockHeld = errors.New("expiry sweep is already running")

// Repository переводит просроченные подписки в expired и возвращает затронутых владельцев.
type Repository interface {
	ExpireOverdue(ctx context.Context, now time.Time) ([]string, error)
}

// Cache инвалидация закешированных списков подписок.
type Cache interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Sweeper фоновая задача истечения подписок.
type Sweeper struct {
	repo     Repository
	cache    Cache
	rs       *redsync.Redsync
	cron     *cron.Cron
	schedule string
	lockTTL  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт Sweeper. Блокировка берётся через тот же клиент Redis, что и кеш.
func New(repo Repository, cache Cache, rdb *redis.Client, cfg config.Sweeper, log *slog.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		cache:    cache,
		rs:       redsync.New(goredis.NewPool(rdb)),
		cron:     cron.New(cron.WithSeconds()),
		schedule: cfg.SweepSchedule,
		lockTTL:  cfg.SweepLockTTL,
		log:      log,
		now:      time.Now,
	}
}

// Start регистрирует задачу по расписанию и запускает планировщик.
func (s *Sweeper) Start(ctx context.Context) error {
	const op = "sweeper.Start"
	_, err := s.cron.AddFunc(s.schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()

		n, err := s.RunOnce(runCtx)
		switch {
		case errors.Is(err, ErrLockHeld):
			s.log.Info("expiry sweep skipped, another replica holds the lock")
		case err != nil:
			s.log.Error("expiry sweep failed", sl.Err(err))
		default:
			s.log.Info("expiry sweep finished", slog.Int("owners", n))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.cron.Start()
	s.log.Info("expiry sweeper started", slog.String("schedule", s.schedule))
	return nil
}

// Stop останавливает планировщик. Возвращённый контекст завершается,
// когда отработает текущий запуск.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce выполняет один проход и возвращает число владельцев, чьи подписки истекли.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	const op = "sweeper.RunOnce"

	mutex := s.rs.NewMutex(LockKey,
		redsync.WithExpiry(s.lockTTL),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			metrics.ExpirySweeps.WithLabelValues("skipped").Inc()
			return 0, fmt.Errorf("%s: %w: %v", op, ErrLockHeld, err)
		}
		metrics.ExpirySweeps.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("%s: acquire lock: %w", op, err)
	}
	defer func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release sweep lock", sl.Err(err))
		}
	}()

	owners, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		metrics.ExpirySweeps.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(owners) > 0 {
		keys := make([]string, 0, len(owners))
		for _, id := range owners {
			keys = append(keys, subscription.ListKey(id))
		}
		if err := s.cache.Invalidate(ctx, keys...); err != nil {
			s.log.Warn("failed to invalidate subscription lists", sl.Err(err))
		}
	}
	metrics.ExpirySweeps.WithLabelValues("ok").Inc()
	return len(owners), nil
}
