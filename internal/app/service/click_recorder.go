package service

import (
	"context"
	"errors"

	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"go.uber.org/zap"
)

// ClickRecorder accepts click events from the redirect path. Implementations
// either persist directly or hand the event to a queue.
type ClickRecorder interface {
	Record(ctx context.Context, event model.ClickEvent) error
}

// StoreRecorder appends click events to the click repository. Queue consumers
// use it as their sink.
type StoreRecorder struct {
	clicks  repository.ClickRepository
	logger  *zap.Logger
	metrics Metrics
}

// NewStoreRecorder creates a recorder writing through clicks.
func NewStoreRecorder(clicks repository.ClickRepository, logger *zap.Logger, metrics Metrics) *StoreRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &StoreRecorder{clicks: clicks, logger: logger, metrics: metrics}
}

// Record stores the event. Events for links that no longer exist are dropped
// without error; any other failure is returned so a queue can redeliver.
func (r *StoreRecorder) Record(ctx context.Context, event model.ClickEvent) error {
	if event.LinkID == "" {
		r.metrics.ClickRecorded(ClickDropped)
		r.logger.Warn("dropping click event without link id", zap.String("id", event.ID))
		return nil
	}

	err := r.clicks.Create(ctx, event.Click())
	switch {
	case err == nil:
		r.metrics.ClickRecorded(ClickStored)
		r.logger.Debug("click stored",
			zap.String("id", event.ID),
			zap.String("code", event.Code),
			zap.Time("timestamp", event.Timestamp),
		)
		return nil
	case errors.Is(err, repository.ErrLinkNotFound):
		r.metrics.ClickRecorded(ClickDropped)
		r.logger.Warn("dropping click for deleted link",
			zap.String("id", event.ID),
			zap.String("code", event.Code),
		)
		return nil
	default:
		r.metrics.ClickRecorded(ClickFailed)
		return err
	}
}
