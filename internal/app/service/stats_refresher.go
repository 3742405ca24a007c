package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StatsRefresher periodically publishes service-wide totals to Metrics.
type StatsRefresher struct {
	logger    *zap.Logger
	analytics AnalyticsService
	metrics   Metrics
	interval  time.Duration
	stopChan  chan struct{}
	done      chan struct{}
}

// NewStatsRefresher creates a refresher running every interval.
func NewStatsRefresher(logger *zap.Logger, analytics AnalyticsService, metrics Metrics, interval time.Duration) *StatsRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StatsRefresher{
		logger:    logger,
		analytics: analytics,
		metrics:   metrics,
		interval:  interval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start refreshes once, then keeps refreshing in the background.
func (r *StatsRefresher) Start() {
	go r.run()
}

// Stop halts the refresher and waits for it to exit.
func (r *StatsRefresher) Stop() {
	close(r.stopChan)
	<-r.done
}

func (r *StatsRefresher) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh()
	for {
		select {
		case <-ticker.C:
			r.refresh()
		case <-r.stopChan:
			r.logger.Info("stats refresher stopped")
			return
		}
	}
}

func (r *StatsRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	stats, err := r.analytics.GlobalStats(ctx)
	if err != nil {
		r.logger.Error("failed to refresh totals", zap.Error(err))
		return
	}
	r.metrics.Totals(stats.TotalLinks, stats.TotalClicks)
}
