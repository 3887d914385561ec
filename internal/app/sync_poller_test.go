package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/mocks"
)

type mergerFunc func(ctx context.Context, incoming []domain.Quote) (domain.MergeReport, error)

func (f mergerFunc) ApplyMerge(ctx context.Context, incoming []domain.Quote) (domain.MergeReport, error) {
	return f(ctx, incoming)
}

func TestNewSyncPoller_RequiresDependencies(t *testing.T) {
	remote := mocks.NewMockSyncRemote(t)

	assert.Panics(t, func() { NewSyncPoller(SyncPollerConfig{Remote: remote}) })
	assert.Panics(t, func() { NewSyncPoller(SyncPollerConfig{Merger: mergerFunc(nil)}) })
	assert.NotPanics(t, func() {
		p := NewSyncPoller(SyncPollerConfig{Merger: mergerFunc(nil), Remote: remote})
		assert.Equal(t, DefaultSyncInterval, p.interval)
	})
}

func TestSyncPoller_SyncNow(t *testing.T) {
	errOffline := domain.NewUnavailableError("sync-remote", "connection refused")

	tests := []struct {
		name       string
		fetchErr   error
		report     domain.MergeReport
		mergeErr   error
		wantNotify bool
		wantResult string
		wantErr    bool
	}{
		{
			name:       "changed notifies",
			report:     domain.MergeReport{Added: 2},
			wantNotify: true,
			wantResult: SyncResultChanged,
		},
		{
			name:       "category update notifies",
			report:     domain.MergeReport{Updated: 1},
			wantNotify: true,
			wantResult: SyncResultChanged,
		},
		{
			name:       "unchanged is silent",
			wantResult: SyncResultUnchanged,
		},
		{
			name:       "fetch failure",
			fetchErr:   errOffline,
			wantResult: SyncResultError,
			wantErr:    true,
		},
		{
			name:       "merge failure",
			mergeErr:   errors.New("disk full"),
			wantResult: SyncResultError,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := mocks.NewMockSyncRemote(t)
			notifier := mocks.NewMockNotifier(t)
			metrics := newFakeMetrics()

			remote.EXPECT().FetchServerQuotes(mock.Anything).Return(domain.StandInServerQuotes(), tt.fetchErr).Once()

			if tt.wantNotify {
				notifier.EXPECT().Notify(mock.Anything, SyncSuccessMessage).Once()
			}

			merged := false
			poller := NewSyncPoller(SyncPollerConfig{
				Merger: mergerFunc(func(_ context.Context, incoming []domain.Quote) (domain.MergeReport, error) {
					merged = true

					assert.Equal(t, domain.StandInServerQuotes(), incoming)

					return tt.report, tt.mergeErr
				}),
				Remote:   remote,
				Notifier: notifier,
				Metrics:  metrics,
				Logger:   discardLogger(),
			})

			report, err := poller.SyncNow(context.Background())

			assert.Equal(t, tt.fetchErr == nil, merged)
			assert.Equal(t, 1, metrics.syncs[tt.wantResult])

			status := poller.Status()
			assert.Equal(t, 1, status.Runs)
			assert.False(t, status.LastRunAt.IsZero())

			if tt.wantErr {
				require.Error(t, err)
				assert.NotEmpty(t, status.LastError)
				assert.Equal(t, domain.MergeReport{}, report)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.report, report)
			assert.Equal(t, tt.report, status.Last)
			assert.Empty(t, status.LastError)
		})
	}
}

func TestSyncPoller_SyncNow_CanceledContext(t *testing.T) {
	remote := mocks.NewMockSyncRemote(t)
	metrics := newFakeMetrics()

	poller := NewSyncPoller(SyncPollerConfig{Merger: mergerFunc(nil), Remote: remote, Metrics: metrics, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.SyncNow(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, poller.Status().Runs)
	assert.Empty(t, metrics.syncs)
}

func TestSyncPoller_Run_SyncsImmediatelyAndOnTicks(t *testing.T) {
	remote := mocks.NewMockSyncRemote(t)

	var runs atomic.Int32

	remote.EXPECT().FetchServerQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		runs.Add(1)
		return nil, nil
	})

	poller := NewSyncPoller(SyncPollerConfig{
		Merger: mergerFunc(func(context.Context, []domain.Quote) (domain.MergeReport, error) {
			return domain.MergeReport{}, nil
		}),
		Remote:   remote,
		Interval: 10 * time.Millisecond,
		Logger:   discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- poller.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSyncPoller_Run_KeepsGoingAfterFailures(t *testing.T) {
	remote := mocks.NewMockSyncRemote(t)

	var calls atomic.Int32

	remote.EXPECT().FetchServerQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		calls.Add(1)
		return nil, domain.NewUnavailableError("sync-remote", "down")
	})

	poller := NewSyncPoller(SyncPollerConfig{
		Merger:   mergerFunc(nil),
		Remote:   remote,
		Interval: 5 * time.Millisecond,
		Logger:   discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = poller.Run(ctx)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, poller.Status().LastError, "down")
}

func TestSyncPoller_WithQuoteService(t *testing.T) {
	f := newLoadedService(t, domain.SeedQuotes(), nil)
	remote := mocks.NewMockSyncRemote(t)
	feed := NewNotificationFeed(time.Minute)

	remote.EXPECT().FetchServerQuotes(mock.Anything).Return(domain.StandInServerQuotes(), nil).Twice()
	f.repo.EXPECT().SaveQuotes(mock.Anything, append(domain.SeedQuotes(), domain.StandInServerQuotes()...)).Return(nil).Once()

	poller := NewSyncPoller(SyncPollerConfig{Merger: f.svc, Remote: remote, Notifier: feed, Logger: discardLogger()})

	report, err := poller.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.MergeReport{Added: 2}, report)
	require.Len(t, feed.Active(), 1)
	assert.Equal(t, SyncSuccessMessage, feed.Active()[0].Message)

	report, err = poller.SyncNow(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Changed())
	assert.Len(t, feed.Active(), 1, "unchanged sync adds no notification")
	assert.Len(t, f.svc.Snapshot(), 5)
}
