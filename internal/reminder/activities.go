package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.temporal.io/sdk/temporal"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// SubscriptionReader читает подписку вместе с данными владельца.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
}

// Dispatcher передаёт напоминание на доставку.
type Dispatcher interface {
	Dispatch(ctx context.Context, r models.Reminder) error
}

// Activities активности workflow напоминаний.
type Activities struct {
	subs       SubscriptionReader
	dispatcher Dispatcher
	log        *slog.Logger
}

// NewActivities создаёт набор активностей для регистрации в воркере.
func NewActivities(subs SubscriptionReader, dispatcher Dispatcher, log *slog.Logger) *Activities {
	return &Activities{subs: subs, dispatcher: dispatcher, log: log}
}

// FetchSubscription возвращает подписку по ID или nil, если её нет.
// Ошибки хранилища возвращаются как есть, чтобы Temporal повторил шаг.
func (a *Activities) FetchSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "reminder.FetchSubscription"
	sub, err := a.subs.GetSubscription(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		a.log.Error("failed to fetch subscription", sl.Op(op), slog.String("subscription_id", id), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// SendReminder передаёт напоминание диспетчеру.
func (a *Activities) SendReminder(ctx context.Context, r models.Reminder) error {
	const op = "reminder.SendReminder"
	if r.To == "" {
		return temporal.NewNonRetryableApplicationError("reminder has no recipient", "InvalidReminder", nil)
	}
	if err := a.dispatcher.Dispatch(ctx, r); err != nil {
		a.log.Error("failed to dispatch reminder", sl.Op(op),
			slog.String("subscription_id", r.Subscription.ID), slog.String("label", r.Label), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.RemindersDispatched.WithLabelValues(strconv.Itoa(r.DaysBefore)).Inc()
	a.log.Info("reminder dispatched",
		slog.String("subscription_id", r.Subscription.ID), slog.String("label", r.Label))
	return nil
}
