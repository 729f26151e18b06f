package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

type ReaderMock struct{ mock.Mock }

func (m *ReaderMock) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type DispatcherMock struct{ mock.Mock }

func (m *DispatcherMock) Dispatch(ctx context.Context, r models.Reminder) error {
	return m.Called(ctx, r).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestActivities_FetchSubscription(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *ReaderMock)
		wantNil    bool
		wantErr    bool
	}{
		{
			name: "found",
			setupMocks: func(r *ReaderMock) {
				r.On("GetSubscription", mock.Anything, "sub-1").Return(&models.Subscription{ID: "sub-1"}, nil).Once()
			},
		},
		{
			name: "not found is not an error",
			setupMocks: func(r *ReaderMock) {
				r.On("GetSubscription", mock.Anything, "sub-1").Return(nil, repository.ErrNotFound).Once()
			},
			wantNil: true,
		},
		{
			name: "storage error is returned for retry",
			setupMocks: func(r *ReaderMock) {
				r.On("GetSubscription", mock.Anything, "sub-1").Return(nil, errors.New("connection reset")).Once()
			},
			wantNil: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(ReaderMock)
			tt.setupMocks(reader)
			a := NewActivities(reader, new(DispatcherMock), newNoopLogger())

			got, err := a.FetchSubscription(context.Background(), "sub-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantNil, got == nil)
			reader.AssertExpectations(t)
		})
	}
}

func TestActivities_SendReminder(t *testing.T) {
	reminder := models.Reminder{
		To:           "alice@example.com",
		Label:        DispatchLabel(2),
		DaysBefore:   2,
		Subscription: models.Subscription{ID: "sub-1"},
	}

	t.Run("dispatches", func(t *testing.T) {
		d := new(DispatcherMock)
		d.On("Dispatch", mock.Anything, reminder).Return(nil).Once()
		a := NewActivities(new(ReaderMock), d, newNoopLogger())

		require.NoError(t, a.SendReminder(context.Background(), reminder))
		d.AssertExpectations(t)
	})

	t.Run("dispatcher error", func(t *testing.T) {
		d := new(DispatcherMock)
		d.On("Dispatch", mock.Anything, reminder).Return(errors.New("broker unavailable")).Once()
		a := NewActivities(new(ReaderMock), d, newNoopLogger())

		assert.Error(t, a.SendReminder(context.Background(), reminder))
	})

	t.Run("no recipient is not retried", func(t *testing.T) {
		a := NewActivities(new(ReaderMock), new(DispatcherMock), newNoopLogger())

		err := a.SendReminder(context.Background(), models.Reminder{Label: "x"})
		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.True(t, appErr.NonRetryable())
	})
}
