// Package sender доставляет напоминания о продлении подписки по электронной почте.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// SenderService превращает сообщения очереди напоминаний в письма.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendReminder обработчик сообщений очереди: разбирает напоминание и отправляет письмо.
// Ошибка возвращает сообщение в очередь, битое или неадресованное сообщение отбрасывается.
func (s *SenderService) SendReminder(body []byte) error {
	const op = "sender.SendReminder"
	var r models.Reminder
	if err := json.Unmarshal(body, &r); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
	}
	return s.Dispatch(context.Background(), r)
}

// Dispatch отправляет письмо-напоминание.
func (s *SenderService) Dispatch(ctx context.Context, r models.Reminder) error {
	const op = "sender.Dispatch"
	if r.To == "" {
		return fmt.Errorf("%s: reminder has no recipient: %w", op, rabbitmq.ErrPermanent)
	}
	subject, text := Compose(r)
	if err := s.sendEmail(ctx, []string{r.To}, subject, text); err != nil {
		metrics.EmailsSent.WithLabelValues("error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
	return nil
}

// Compose формирует тему и текст письма-напоминания.
func Compose(r models.Reminder) (subject, body string) {
	sub := r.Subscription
	name := "there"
	if sub.Owner != nil && sub.Owner.Name != "" {
		name = sub.Owner.Name
	}
	subject = fmt.Sprintf("📅 Reminder: Your %s Subscription Renews in %d Days!", sub.Name, r.DaysBefore)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Your %s subscription is set to renew on %s (%d days from now).\n\n",
		sub.Name, sub.RenewalDate.UTC().Format("Jan 2, 2006"), r.DaysBefore)
	fmt.Fprintf(&b, "Plan: %s\n", sub.Name)
	fmt.Fprintf(&b, "Price: %s %.2f", sub.Currency, sub.Price)
	if sub.Frequency != "" {
		fmt.Fprintf(&b, " (%s)", sub.Frequency)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Payment Method: %s\n\n", sub.PaymentMethod)
	b.WriteString("If you'd like to make changes or cancel, please do so before the renewal date.\n")
	return subject, b.String()
}

func (s *SenderService) sendEmail(ctx context.Context, to []string, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect(ctx)
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
