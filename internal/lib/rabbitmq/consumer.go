package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

const maxInFlight = 10

// ErrPermanent помечает ошибку обработчика, которую повтор не исправит
// (битое тело, нет получателя). Такое сообщение отклоняется без возврата в очередь.
var ErrPermanent = errors.New("permanent message failure")

// ConsumerMessage запускает потребителя очереди queueName. Каждое сообщение обрабатывается
// в отдельной горутине, одновременно не более maxInFlight. Ошибка обработчика
// возвращает сообщение в очередь, кроме ошибок с ErrPermanent. Возвращённый канал
// закрывается после остановки потребителя и завершения всех обработчиков.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler func([]byte) error) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		defer close(done)
		defer wg.Wait()

		sem := make(chan struct{}, maxInFlight)
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				wg.Add(1)
				go func(d amqp.Delivery) {
					defer wg.Done()
					defer func() { <-sem }()
					handleDelivery(d, queueName, log, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done, nil
}

// handleDelivery вызывает обработчик и завершает доставку по его результату.
func handleDelivery(d amqp.Delivery, queueName string, log *slog.Logger, handler func([]byte) error) {
	err := handler(d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrPermanent):
		log.Error("message rejected, dropping", slog.String("queue", queueName), sl.Err(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	default:
		log.Warn("message handling failed, requeueing", slog.String("queue", queueName), sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
