package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/shrtnr/internal/app/model"
	"go.uber.org/zap"
)

const redisPopWait = 5 * time.Second

// RedisClickQueue publishes click events onto a Redis list.
type RedisClickQueue struct {
	rdb     redis.Cmdable
	key     string
	metrics Metrics
}

// NewRedisClickQueue creates a queue writing to the list at key.
func NewRedisClickQueue(rdb redis.Cmdable, key string, metrics Metrics) *RedisClickQueue {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &RedisClickQueue{rdb: rdb, key: key, metrics: metrics}
}

func (q *RedisClickQueue) Record(ctx context.Context, event model.ClickEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, data).Err(); err != nil {
		q.metrics.ClickRecorded(ClickFailed)
		return fmt.Errorf("enqueue click event: %w", err)
	}
	q.metrics.ClickRecorded(ClickQueued)
	return nil
}

// RedisClickConsumer pops click events from a Redis list and stores them.
// A failed store pushes the event back to the tail of the list.
type RedisClickConsumer struct {
	rdb     redis.Cmdable
	key     string
	workers int
	logger  *zap.Logger
	sink    *StoreRecorder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisClickConsumer creates a consumer running the given number of workers.
func NewRedisClickConsumer(rdb redis.Cmdable, key string, workers int, logger *zap.Logger, sink *StoreRecorder) *RedisClickConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &RedisClickConsumer{rdb: rdb, key: key, workers: workers, logger: logger, sink: sink}
}

// Start launches the workers.
func (c *RedisClickConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.run(ctx)
		}()
	}
}

// Stop cancels the workers and waits for them to exit.
func (c *RedisClickConsumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("redis click consumer stopped")
}

func (c *RedisClickConsumer) run(ctx context.Context) {
	for ctx.Err() == nil {
		res, err := c.rdb.BLPop(ctx, redisPopWait, c.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to pop click event", zap.Error(err))
			sleepCtx(ctx, fetchBackoff)
			continue
		}
		// BLPOP replies with [key, value]
		if len(res) != 2 {
			continue
		}
		c.handle(ctx, res[1])
	}
}

func (c *RedisClickConsumer) handle(ctx context.Context, payload string) {
	var event model.ClickEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Error("failed to unmarshal click event", zap.Error(err))
		return
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistBudget)
	defer cancel()

	if err := c.sink.Record(storeCtx, event); err != nil {
		c.logger.Error("failed to store click event, requeueing",
			zap.String("id", event.ID),
			zap.String("code", event.Code),
			zap.Error(err))
		if err := c.rdb.RPush(storeCtx, c.key, payload).Err(); err != nil {
			c.logger.Error("failed to requeue click event", zap.String("id", event.ID), zap.Error(err))
		}
		sleepCtx(ctx, fetchBackoff)
	}
}
