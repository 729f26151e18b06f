// Package subscription содержит бизнес-логику создания и чтения подписок,
// кеширование списков и запуск напоминаний о продлении.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/renewal"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

const cacheTTL = time.Hour

// maxPrice граница столбца NUMERIC(12, 2).
const maxPrice = 1e10

// Repository определяет методы для работы с подписками в хранилище.
type Repository interface {
	// CreateSubscription сохраняет подписку и возвращает сохранённую запись.
	CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	// GetSubscription возвращает подписку по ID вместе с владельцем.
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// ListSubscriptionsByUser возвращает все подписки пользователя.
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]*models.Subscription, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// ReminderTrigger запускает workflow напоминаний.
type ReminderTrigger interface {
	Trigger(ctx context.Context, req reminder.TriggerRequest) (string, error)
}

// Service реализует бизнес-логику работы с подписками, включая кеширование.
type Service struct {
	repo    Repository
	cache   Cache
	trigger ReminderTrigger
	log     *slog.Logger
	now     func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, trigger ReminderTrigger, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		trigger: trigger,
		log:     log,
		now:     time.Now,
	}
}

// ListKey ключ кеша для списка подписок пользователя.
func ListKey(userID string) string {
	return fmt.Sprintf("subscriptions:user:%s", userID)
}

// Create проверяет данные, вычисляет дату продления, сохраняет подписку
// и запускает для неё workflow напоминаний.
func (s *Service) Create(ctx context.Context, userID string, req models.DummySubscription) (*models.CreatedSubscription, error) {
	const op = "services.subscription.Create"

	sub, err := s.build(userID, req)
	if err != nil {
		return nil, err
	}
	if err := renewal.Apply(&sub, s.now()); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateSubscription(ctx, sub)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Duplicate(err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new subscription", slog.String("id", created.ID), slog.String("status", string(created.Status)))

	if err := s.cache.Invalidate(ctx, ListKey(userID)); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", ListKey(userID)), sl.Err(err))
	}

	runID, err := s.trigger.Trigger(ctx, reminder.TriggerRequest{
		Workflow: reminder.WorkflowName,
		Body:     reminder.Input{SubscriptionID: created.ID},
		Retries:  0,
	})
	if err != nil {
		s.log.Error("failed to start reminder workflow", sl.Op(op), slog.String("id", created.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.CreatedSubscription{Subscription: created, WorkflowRunID: runID}, nil
}

// ListByUser возвращает подписки пользователя. Запрашивать можно только свои подписки.
func (s *Service) ListByUser(ctx context.Context, requesterID, userID string) ([]*models.Subscription, error) {
	const op = "services.subscription.ListByUser"
	if requesterID != userID {
		return nil, apperr.Unauthorized("you are not the owner of this account")
	}

	var cached []*models.Subscription
	found, err := s.cache.Get(ctx, ListKey(userID), &cached)
	if err != nil {
		s.log.Warn("failed to read cache", slog.String("key", ListKey(userID)), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, ListKey(userID), subs, cacheTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", ListKey(userID)), sl.Err(err))
	}
	return subs, nil
}

// TriggerReminder повторно запускает напоминания для подписки владельца.
func (s *Service) TriggerReminder(ctx context.Context, requesterID, subscriptionID string) (string, error) {
	const op = "services.subscription.TriggerReminder"

	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.NotFound("subscription not found")
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if sub.UserID != requesterID {
		return "", apperr.Forbidden("you are not the owner of this subscription")
	}

	runID, err := s.trigger.Trigger(ctx, reminder.TriggerRequest{
		Workflow: reminder.WorkflowName,
		Body:     reminder.Input{SubscriptionID: sub.ID},
		Retries:  0,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return runID, nil
}

func (s *Service) build(userID string, req models.DummySubscription) (models.Subscription, error) {
	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return models.Subscription{}, apperr.Validation("subscription name must be between 2 and 100 characters")
	}
	if req.Price == nil {
		return models.Subscription{}, apperr.Validation("subscription price is required")
	}
	if *req.Price < 0 {
		return models.Subscription{}, apperr.Validation("price must be greater than or equal to 0")
	}
	if *req.Price >= maxPrice {
		return models.Subscription{}, apperr.Validation("price must be less than 10000000000")
	}
	if priceDecimals(*req.Price) > 2 {
		return models.Subscription{}, apperr.Validation("price must have at most 2 decimal places")
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		return models.Subscription{}, apperr.Validation("payment method is required")
	}

	currency := models.Currency(req.Currency)
	if currency == "" {
		currency = models.CurrencyINR
	}
	if !currency.Valid() {
		return models.Subscription{}, apperr.Validation(fmt.Sprintf("unsupported currency %q", req.Currency))
	}
	status := models.Status(req.Status)
	if status == "" {
		status = models.StatusActive
	}
	if !status.Valid() {
		return models.Subscription{}, apperr.Validation(fmt.Sprintf("unknown status %q", req.Status))
	}
	frequency := models.Frequency(req.Frequency)
	if frequency != "" && !frequency.Valid() {
		return models.Subscription{}, apperr.Validation(fmt.Sprintf("unknown frequency %q", req.Frequency))
	}
	category := models.Category(req.Category)
	if !category.Valid() {
		return models.Subscription{}, apperr.Validation(fmt.Sprintf("unknown category %q", req.Category))
	}

	start, err := ParseDate(req.StartDate)
	if err != nil {
		return models.Subscription{}, apperr.Wrap(http.StatusBadRequest, "invalid start date", err)
	}
	var renewalDate time.Time
	if strings.TrimSpace(req.RenewalDate) != "" {
		if renewalDate, err = ParseDate(req.RenewalDate); err != nil {
			return models.Subscription{}, apperr.Wrap(http.StatusBadRequest, "invalid renewal date", err)
		}
	}

	return models.Subscription{
		ID:            uuid.NewString(),
		Name:          name,
		Price:         *req.Price,
		Currency:      currency,
		Frequency:     frequency,
		Category:      category,
		PaymentMethod: paymentMethod,
		Status:        status,
		StartDate:     start,
		RenewalDate:   renewalDate,
		UserID:        userID,
	}, nil
}

// priceDecimals число знаков после запятой в кратчайшей записи цены.
func priceDecimals(p float64) int {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// ParseDate разбирает дату в RFC 3339 или в формате 2006-01-02 (полночь UTC).
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be RFC 3339 or YYYY-MM-DD", value)
	}
	return t, nil
}
