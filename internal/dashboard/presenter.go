package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"
)

const DefaultRefreshInterval = 5 * time.Minute

type MetricsFetcher interface {
	DashboardMetrics(ctx context.Context) (*models.MetricsBundle, error)
}

// Presenter polls the metrics endpoint and keeps the latest bundle for display
type Presenter struct {
	fetcher  MetricsFetcher
	Interval time.Duration
	Logger   *logger.Logger
	// OnUpdate is called with the new view after every resolved fetch
	OnUpdate func(View)
	Now      func() time.Time

	mu         sync.Mutex
	bundle     *models.MetricsBundle
	err        error
	issued     uint64
	appliedSeq uint64
	updatedAt  time.Time
}

func NewPresenter(fetcher MetricsFetcher, interval time.Duration, log *logger.Logger) *Presenter {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Presenter{
		fetcher:  fetcher,
		Interval: interval,
		Logger:   log,
		Now:      time.Now,
	}
}

// Refresh fetches a new bundle. Whatever resolves last is shown, even if it was issued earlier.
func (p *Presenter) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	bundle, err := p.fetcher.DashboardMetrics(ctx)

	p.mu.Lock()
	p.appliedSeq = seq
	if err != nil {
		p.err = err
	} else {
		p.bundle = bundle
		p.err = nil
		p.updatedAt = p.now()
	}
	view := p.viewLocked()
	p.mu.Unlock()

	if err != nil {
		p.Logger.Error("DASHBOARD", fmt.Sprintf("Failed to fetch metrics (request %d): %v", seq, err))
	}
	if p.OnUpdate != nil {
		p.OnUpdate(view)
	}
	return err
}

// Retry is the manual retry offered after a failed fetch
func (p *Presenter) Retry(ctx context.Context) error {
	return p.Refresh(ctx)
}

// Run refreshes now and then every Interval until ctx is done
func (p *Presenter) Run(ctx context.Context) error {
	_ = p.Refresh(ctx)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = p.Refresh(ctx)
		}
	}
}

// Bundle returns the last successfully fetched bundle, nil before the first success
func (p *Presenter) Bundle() *models.MetricsBundle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bundle
}

func (p *Presenter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// LastApplied is the sequence number of the request whose result is shown
func (p *Presenter) LastApplied() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.appliedSeq
}

func (p *Presenter) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

func (p *Presenter) viewLocked() View {
	v := BuildView(p.bundle)
	v.Loading = p.bundle == nil && p.err == nil
	v.UpdatedAt = p.updatedAt
	if p.err != nil {
		v.Error = "Failed to load dashboard metrics."
		v.CanRetry = true
	}
	return v
}

func (p *Presenter) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
