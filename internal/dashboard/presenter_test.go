package dashboard

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-gatepass/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchResult struct {
	bundle *models.MetricsBundle
	err    error
}

// scriptedFetcher hands out one channel per call so tests control resolve order
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   []chan fetchResult
	started chan int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{started: make(chan int, 16)}
}

func (f *scriptedFetcher) DashboardMetrics(ctx context.Context) (*models.MetricsBundle, error) {
	ch := make(chan fetchResult, 1)
	f.mu.Lock()
	f.calls = append(f.calls, ch)
	n := len(f.calls)
	f.mu.Unlock()
	f.started <- n

	select {
	case res := <-ch:
		return res.bundle, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *scriptedFetcher) resolve(call int, res fetchResult) {
	f.mu.Lock()
	ch := f.calls[call-1]
	f.mu.Unlock()
	ch <- res
}

type staticFetcher struct {
	mu     sync.Mutex
	bundle *models.MetricsBundle
	err    error
	calls  int
}

func (f *staticFetcher) DashboardMetrics(ctx context.Context) (*models.MetricsBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.bundle, f.err
}

func (f *staticFetcher) set(bundle *models.MetricsBundle, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundle, f.err = bundle, err
}

func (f *staticFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestLastResolvedResponseWins(t *testing.T) {
	fetcher := newScriptedFetcher()
	p := NewPresenter(fetcher, time.Minute, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.Refresh(context.Background())
	}()
	require.Equal(t, 1, <-fetcher.started)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.Refresh(context.Background())
	}()
	require.Equal(t, 2, <-fetcher.started)

	// the later request resolves first
	fetcher.resolve(2, fetchResult{bundle: &models.MetricsBundle{ActivePasses: 2}})
	require.Eventually(t, func() bool { return p.LastApplied() == 2 }, time.Second, 5*time.Millisecond)

	fetcher.resolve(1, fetchResult{bundle: &models.MetricsBundle{ActivePasses: 1}})
	wg.Wait()

	assert.Equal(t, uint64(1), p.LastApplied())
	assert.Equal(t, 1, p.Bundle().ActivePasses)
}

func TestErrorKeepsPreviousBundle(t *testing.T) {
	fetcher := &staticFetcher{bundle: &models.MetricsBundle{ActivePasses: 4}}
	p := NewPresenter(fetcher, time.Minute, nil)
	fixed := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return fixed }

	var updates []View
	p.OnUpdate = func(v View) { updates = append(updates, v) }

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, fixed, p.View().UpdatedAt)

	fetcher.set(nil, errors.New("503 Service Unavailable"))
	require.Error(t, p.Refresh(context.Background()))

	assert.Equal(t, 4, p.Bundle().ActivePasses)
	assert.Error(t, p.Err())

	v := p.View()
	assert.Equal(t, "Failed to load dashboard metrics.", v.Error)
	assert.True(t, v.CanRetry)
	assert.False(t, v.Loading)
	assert.Equal(t, "4", v.Cards[0].Value)

	fetcher.set(&models.MetricsBundle{ActivePasses: 5}, nil)
	require.NoError(t, p.Retry(context.Background()))
	assert.NoError(t, p.Err())
	assert.Equal(t, 5, p.Bundle().ActivePasses)
	assert.Empty(t, p.View().Error)

	assert.Len(t, updates, 3)
}

func TestLoadingBeforeFirstResult(t *testing.T) {
	p := NewPresenter(&staticFetcher{}, 0, nil)
	assert.Equal(t, DefaultRefreshInterval, p.Interval)
	assert.True(t, p.View().Loading)
	assert.Nil(t, p.Bundle())

	var buf bytes.Buffer
	require.NoError(t, p.View().Render(&buf))
	assert.Equal(t, "Loading dashboard...\n", buf.String())
}

func TestRunRefreshesOnInterval(t *testing.T) {
	fetcher := &staticFetcher{bundle: &models.MetricsBundle{}}
	p := NewPresenter(fetcher, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return fetcher.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
