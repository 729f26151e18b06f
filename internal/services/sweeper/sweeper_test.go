package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) ExpireOverdue(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	owners, _ := args.Get(0).([]string)
	return owners, args.Error(1)
}

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Invalidate(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 3, 20, 2, 0, 0, 0, time.UTC)

func newTestSweeper(t *testing.T, repo Repository, cache Cache) (*Sweeper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := New(repo, cache, rdb, config.Sweeper{
		SweepSchedule: "0 0 2 * * *",
		SweepLockTTL:  time.Minute,
	}, newNoopLogger())
	s.now = func() time.Time { return fixedNow }
	return s, mr
}

func TestSweeper_RunOnce(t *testing.T) {
	errDB := errors.New("db down")

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
		want       int
		wantErr    error
	}{
		{
			name: "expires and invalidates owner lists",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("ExpireOverdue", mock.Anything, fixedNow).Return([]string{"u1", "u2"}, nil)
				c.On("Invalidate", mock.Anything, []string{
					"subscriptions:user:u1",
					"subscriptions:user:u2",
				}).Return(nil)
			},
			want: 2,
		},
		{
			name: "nothing overdue skips cache",
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("ExpireOverdue", mock.Anything, fixedNow).Return([]string{}, nil)
			},
			want: 0,
		},
		{
			name: "cache failure is not fatal",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("ExpireOverdue", mock.Anything, fixedNow).Return([]string{"u1"}, nil)
				c.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis down"))
			},
			want: 1,
		},
		{
			name: "repository error",
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("ExpireOverdue", mock.Anything, fixedNow).Return(nil, errDB)
			},
			wantErr: errDB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			tt.setupMocks(repo, cache)

			s, mr := newTestSweeper(t, repo, cache)
			n, err := s.RunOnce(context.Background())

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			}
			assert.False(t, mr.Exists(LockKey), "lock must be released")
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestSweeper_RunOnce_LockHeld(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)

	s, mr := newTestSweeper(t, repo, cache)
	require.NoError(t, mr.Set(LockKey, "other-replica"))
	skippedBefore := testutil.ToFloat64(metrics.ExpirySweeps.WithLabelValues("skipped"))

	_, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, ErrLockHeld)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExpirySweeps.WithLabelValues("skipped"))-skippedBefore)
	repo.AssertNotCalled(t, "ExpireOverdue", mock.Anything, mock.Anything)

	val, err := mr.Get(LockKey)
	require.NoError(t, err)
	assert.Equal(t, "other-replica", val, "foreign lock must stay untouched")
}

func TestSweeper_RunOnce_RedisUnavailable(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)

	s, mr := newTestSweeper(t, repo, cache)
	mr.Close()
	skippedBefore := testutil.ToFloat64(metrics.ExpirySweeps.WithLabelValues("skipped"))
	errorsBefore := testutil.ToFloat64(metrics.ExpirySweeps.WithLabelValues("error"))

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockHeld)
	assert.Contains(t, err.Error(), "acquire lock")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExpirySweeps.WithLabelValues("error"))-errorsBefore)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ExpirySweeps.WithLabelValues("skipped"))-skippedBefore)
	repo.AssertNotCalled(t, "ExpireOverdue", mock.Anything, mock.Anything)
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	s, _ := newTestSweeper(t, new(RepoMock), new(CacheMock))
	s.schedule = "every day"

	require.Error(t, s.Start(context.Background()))
}

func TestSweeper_StartStop(t *testing.T) {
	s, _ := newTestSweeper(t, new(RepoMock), new(CacheMock))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
