// Package dispatcher передаёт напоминания в очередь RabbitMQ, откуда их забирает сервис рассылки.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Queue публикует напоминания в exchange уведомлений.
type Queue struct {
	ch         rabbitmq.Publisher
	exchange   string
	routingKey string
	log        *slog.Logger
}

// New создаёт Queue поверх открытого канала.
func New(ch rabbitmq.Publisher, log *slog.Logger) *Queue {
	return &Queue{
		ch:         ch,
		exchange:   rabbitmq.Exchange,
		routingKey: rabbitmq.ReminderRoutingKey,
		log:        log,
	}
}

// Dispatch публикует напоминание. Повторная доставка того же напоминания допустима.
func (q *Queue) Dispatch(ctx context.Context, r models.Reminder) error {
	const op = "dispatcher.Dispatch"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rabbitmq.PublishMessage(q.ch, q.exchange, q.routingKey, r); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	q.log.Debug("reminder queued", slog.String("to", r.To), slog.String("label", r.Label))
	return nil
}
