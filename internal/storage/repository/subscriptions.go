package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const subscriptionColumns = `s.id, s.name, s.price, s.currency, s.frequency, s.category, s.payment_method,
	s.status, s.start_date, s.renewal_date, s.user_id, s.created_at, s.updated_at`

func scanSubscription(row rowScanner, extra ...any) (*models.Subscription, error) {
	var (
		sub       models.Subscription
		frequency sql.NullString
	)
	dest := []any{
		&sub.ID, &sub.Name, &sub.Price, &sub.Currency, &frequency, &sub.Category, &sub.PaymentMethod,
		&sub.Status, &sub.StartDate, &sub.RenewalDate, &sub.UserID, &sub.CreatedAt, &sub.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	sub.Frequency = models.Frequency(frequency.String)
	return &sub, nil
}

// CreateSubscription сохраняет новую подписку. ID задаётся вызывающей стороной.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var frequency sql.NullString
	if sub.Frequency != "" {
		frequency = sql.NullString{String: string(sub.Frequency), Valid: true}
	}

	query := `INSERT INTO subscriptions AS s (id, name, price, currency, frequency, category,
				  payment_method, status, start_date, renewal_date, user_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING ` + subscriptionColumns
	created, err := scanSubscription(s.DB.QueryRowContext(ctx, query,
		sub.ID, sub.Name, sub.Price, sub.Currency, frequency, sub.Category,
		sub.PaymentMethod, sub.Status, sub.StartDate, sub.RenewalDate, sub.UserID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return created, nil
}

// GetSubscription возвращает подписку по ID вместе с именем и email владельца.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `, u.name, u.email
			  FROM subscriptions s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.id = $1`
	var owner models.SubscriptionOwner
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id), &owner.Name, &owner.Email)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	sub.Owner = &owner
	return sub, nil
}

// ListSubscriptionsByUser возвращает все подписки пользователя, новые последними.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  WHERE s.user_id = $1
			  ORDER BY s.created_at, s.id`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// ExpireOverdue переводит в expired активные подписки с прошедшей датой продления
// и возвращает ID их владельцев (без повторов).
func (s *Storage) ExpireOverdue(ctx context.Context, now time.Time) ([]string, error) {
	const op = "storage.ExpireOverdue"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `WITH expired AS (
				  UPDATE subscriptions
				  SET status = 'expired', updated_at = now()
				  WHERE status = 'active' AND renewal_date < $1
				  RETURNING user_id
			  )
			  SELECT DISTINCT user_id FROM expired`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var owners []string
	for rows.Next() {
		var userID string
		if err = rows.Scan(&userID); err != nil {
			return nil, wrapErr(op, err)
		}
		owners = append(owners, userID)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return owners, nil
}
