package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/shrtnr/internal/app/model"
)

// JetStreamPublisher is the slice of nats.JetStreamContext the publisher needs.
type JetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// ClickPublisher publishes click events to NATS JetStream.
type ClickPublisher struct {
	js      JetStreamPublisher
	metrics Metrics
}

// NewClickPublisher creates a new click event publisher.
func NewClickPublisher(js JetStreamPublisher, metrics Metrics) *ClickPublisher {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &ClickPublisher{js: js, metrics: metrics}
}

// Record publishes the event. The event id is used as the JetStream message id
// so the stream drops duplicate publishes inside its dedupe window.
func (p *ClickPublisher) Record(ctx context.Context, event model.ClickEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}

	if _, err := p.js.Publish(model.ClickStreamSubject, data, nats.MsgId(event.ID), nats.Context(ctx)); err != nil {
		p.metrics.ClickRecorded(ClickFailed)
		return fmt.Errorf("publish click event: %w", err)
	}
	p.metrics.ClickRecorded(ClickQueued)
	return nil
}
