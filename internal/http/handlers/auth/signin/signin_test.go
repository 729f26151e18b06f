package signin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) SignIn(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	args := m.Called(ctx, creds)
	res, _ := args.Get(0).(*models.AuthResult)
	return res, args.Error(1)
}

func TestSignInHandler_ServeHTTP(t *testing.T) {
	creds := models.Credentials{Email: "john@example.com", Password: "secret"}

	tests := []struct {
		name           string
		body           string
		setupMocks     func(m *AuthServiceMock)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "signed in",
			body: `{"email":"john@example.com","password":"secret"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("SignIn", mock.Anything, creds).Return(&models.AuthResult{
					Token: "jwt-token",
					User:  &models.User{ID: "u1"},
				}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing email",
			body:           `{"password":"secret"}`,
			setupMocks:     func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Email is a required field",
		},
		{
			name: "unknown user",
			body: `{"email":"john@example.com","password":"secret"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("SignIn", mock.Anything, creds).Return(nil, apperr.NotFound("user not found")).Once()
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "user not found",
		},
		{
			name: "wrong password",
			body: `{"email":"john@example.com","password":"secret"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("SignIn", mock.Anything, creds).Return(nil, apperr.Unauthorized("invalid password")).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "invalid password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			tt.setupMocks(svc)
			handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, "OK", got["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}
