package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subscription-tracker/internal/migrations"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	path, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, path))

	return storage
}

// TestDataFactory создаёт тестовые записи напрямую через хранилище.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создаёт новую фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создаёт пользователя с указанным email.
func (f *TestDataFactory) CreateUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := f.storage.CreateUser(context.Background(), models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$10$hashedpassword",
	})
	require.NoError(t, err)
	return u
}

// CreateSubscription создаёт подписку пользователя с заданными статусом и датой продления.
func (f *TestDataFactory) CreateSubscription(t *testing.T, userID string, status models.Status, renewal time.Time) *models.Subscription {
	t.Helper()
	sub, err := f.storage.CreateSubscription(context.Background(), models.Subscription{
		ID:            uuid.NewString(),
		Name:          "Netflix Premium",
		Price:         649,
		Currency:      models.CurrencyINR,
		Frequency:     models.FrequencyMonthly,
		Category:      models.CategoryEntertainment,
		PaymentMethod: "Credit Card",
		Status:        status,
		StartDate:     renewal.AddDate(0, 0, -30),
		RenewalDate:   renewal,
		UserID:        userID,
	})
	require.NoError(t, err)
	return sub
}

// countRows возвращает количество строк в таблице.
func countRows(t *testing.T, storage *Storage, table string) int {
	t.Helper()
	var count int
	require.NoError(t, storage.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}
