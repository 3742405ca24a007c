package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/shrtnr/internal/app/model"
	"go.uber.org/zap"
)

const (
	fetchBatch    = 10
	fetchWait     = 5 * time.Second
	fetchBackoff  = time.Second
	persistBudget = 5 * time.Second
)

// ClickConsumer drains the JetStream click stream into the store. Messages are
// acked only once persisted, so delivery is at-least-once.
type ClickConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	sink   *StoreRecorder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClickConsumer creates a new click event consumer.
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, sink *StoreRecorder) *ClickConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickConsumer{js: js, logger: logger, sink: sink}
}

// Start ensures the stream and durable consumer exist, then consumes in the background.
func (c *ClickConsumer) Start(ctx context.Context) error {
	if _, err := c.js.StreamInfo(model.ClickStreamName); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("failed to look up stream: %w", err)
		}
		if _, err := c.js.AddStream(&nats.StreamConfig{
			Name:     model.ClickStreamName,
			Subjects: []string{model.ClickStreamSubject},
			MaxBytes: model.ClickStreamMaxBytes,
			Storage:  nats.FileStorage,
		}); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := c.js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName); err != nil {
		if !errors.Is(err, nats.ErrConsumerNotFound) {
			return fmt.Errorf("failed to look up consumer: %w", err)
		}
		if _, err := c.js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		}); err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName, nats.Bind(model.ClickStreamName, model.ClickConsumerName))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, sub)
	}()
	return nil
}

// Stop halts consumption and waits for the in-flight batch.
func (c *ClickConsumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("click consumer stopped")
}

func (c *ClickConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	for ctx.Err() == nil {
		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			c.logger.Error("failed to fetch messages", zap.Error(err))
			sleepCtx(ctx, fetchBackoff)
			continue
		}

		for _, msg := range msgs {
			c.handle(ctx, msg.Data, msg)
		}
	}
}

// delivery is the acknowledgement side of a JetStream message.
type delivery interface {
	Ack(opts ...nats.AckOpt) error
	NakWithDelay(delay time.Duration, opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// handle persists one event. Store failures are redelivered after
// fetchBackoff so an outage does not spin on the same messages.
func (c *ClickConsumer) handle(ctx context.Context, data []byte, msg delivery) {
	var event model.ClickEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("failed to unmarshal click event", zap.Error(err))
		_ = msg.Term()
		return
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistBudget)
	defer cancel()

	if err := c.sink.Record(storeCtx, event); err != nil {
		c.logger.Error("failed to store click event",
			zap.String("id", event.ID),
			zap.String("code", event.Code),
			zap.Error(err))
		_ = msg.NakWithDelay(fetchBackoff)
		return
	}
	_ = msg.Ack()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
