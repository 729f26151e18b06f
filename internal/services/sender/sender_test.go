package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect(ctx context.Context) (smtp.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	return m.Called().String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockSMTPClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockSMTPClient) Quit() error            { return m.Called().Error(0) }
func (m *MockSMTPClient) Close() error           { return m.Called().Error(0) }

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

// bufferWriter собирает тело письма.
type bufferWriter struct {
	bytes.Buffer
	closed bool
}

func (w *bufferWriter) Close() error {
	w.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testReminder() models.Reminder {
	return models.Reminder{
		To:         "alice@example.com",
		Label:      "5 days before reminder",
		DaysBefore: 5,
		Subscription: models.Subscription{
			ID:            "sub-1",
			Name:          "Netflix Premium",
			Price:         649,
			Currency:      models.CurrencyINR,
			Frequency:     models.FrequencyMonthly,
			PaymentMethod: "Credit Card",
			RenewalDate:   time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			Owner:         &models.SubscriptionOwner{Name: "Alice", Email: "alice@example.com"},
		},
	}
}

func TestSenderService_SendReminder(t *testing.T) {
	body, err := json.Marshal(testReminder())
	require.NoError(t, err)

	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport, *bufferWriter)
		expectedError bool
		errorMessage  string
		permanent     bool
	}{
		{
			name: "success - reminder email sent",
			body: body,
			setupMocks: func(tr *MockTransport, w *bufferWriter) {
				client := new(MockSMTPClient)
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect", mock.Anything).Return(client, nil).Once()
				client.On("Mail", "noreply@example.com").Return(nil).Once()
				client.On("Rcpt", "alice@example.com").Return(nil).Once()
				client.On("Data").Return(w, nil).Once()
				client.On("Quit").Return(nil).Once()
				client.On("Close").Return(nil).Once()
			},
		},
		{
			name:          "invalid JSON",
			body:          []byte(`invalid json`),
			setupMocks:    func(_ *MockTransport, _ *bufferWriter) {},
			expectedError: true,
			errorMessage:  "sender.SendReminder",
			permanent:     true,
		},
		{
			name:          "no recipient",
			body:          []byte(`{"label":"1 days before reminder"}`),
			setupMocks:    func(_ *MockTransport, _ *bufferWriter) {},
			expectedError: true,
			errorMessage:  "no recipient",
			permanent:     true,
		},
		{
			name: "SMTP connection error",
			body: body,
			setupMocks: func(tr *MockTransport, _ *bufferWriter) {
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect", mock.Anything).Return(nil, errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
		{
			name: "recipient rejected",
			body: body,
			setupMocks: func(tr *MockTransport, _ *bufferWriter) {
				client := new(MockSMTPClient)
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect", mock.Anything).Return(client, nil).Once()
				client.On("Mail", "noreply@example.com").Return(nil).Once()
				client.On("Rcpt", "alice@example.com").Return(errors.New("550 mailbox unavailable")).Once()
				client.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "mailbox unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			writer := &bufferWriter{}
			tt.setupMocks(transport, writer)
			service := NewSenderService(transport, newNoopLogger())

			err := service.SendReminder(tt.body)
			if tt.expectedError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
				assert.Equal(t, tt.permanent, errors.Is(err, rabbitmq.ErrPermanent))
			} else {
				require.NoError(t, err)
				assert.True(t, writer.closed)
				msg := writer.String()
				assert.Contains(t, msg, "To: alice@example.com\r\n")
				assert.Contains(t, msg, "Subject: =?utf-8?q?")
				assert.Contains(t, msg, "Hello Alice,")
				assert.Contains(t, msg, "Mar 20, 2025")
			}
			transport.AssertExpectations(t)
		})
	}
}

func TestCompose(t *testing.T) {
	subject, body := Compose(testReminder())

	assert.Contains(t, subject, "Netflix Premium")
	assert.Contains(t, subject, "5 Days")
	assert.Contains(t, body, "Price: INR 649.00 (monthly)")
	assert.Contains(t, body, "Payment Method: Credit Card")

	r := testReminder()
	r.Subscription.Owner = nil
	_, body = Compose(r)
	assert.Contains(t, body, "Hello there,")
}
