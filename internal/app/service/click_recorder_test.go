package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRecorder_Record(t *testing.T) {
	metrics := newRecordingMetrics()
	reg := newRegistry(t, LinkServiceOptions{})
	recorder := NewStoreRecorder(reg.clicks, nil, metrics)
	ctx := context.Background()

	link, err := reg.service.CreateLink(ctx, CreateLinkInput{URL: "https://r.example", CustomCode: "rec"})
	require.NoError(t, err)

	event := model.NewClickEvent(link, "198.51.100.1", "<script>alert(1)</script>", "")
	require.NoError(t, recorder.Record(ctx, event))
	// redelivery of the same event is stored once
	require.NoError(t, recorder.Record(ctx, event))

	n, err := reg.clicks.CountByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, metrics.clickCount(ClickStored))

	require.NoError(t, reg.service.DeleteLink(ctx, "rec", nil))
	require.NoError(t, recorder.Record(ctx, model.NewClickEvent(link, "", "", "")))
	assert.Equal(t, 1, metrics.clickCount(ClickDropped))

	require.NoError(t, recorder.Record(ctx, model.ClickEvent{ID: "no-link"}))
	assert.Equal(t, 2, metrics.clickCount(ClickDropped))
}

func TestStoreRecorder_FailureIsReturned(t *testing.T) {
	boom := errors.New("timeout")
	metrics := newRecordingMetrics()
	recorder := NewStoreRecorder(&mockClickRepository{
		createFn: func(context.Context, *model.Click) error { return boom },
	}, nil, metrics)

	err := recorder.Record(context.Background(), model.ClickEvent{ID: "1", LinkID: "l"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, metrics.clickCount(ClickFailed))
}

type fakeJetStream struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subject = subj
	f.data = data
	return &nats.PubAck{Stream: model.ClickStreamName}, nil
}

func TestClickPublisher_Record(t *testing.T) {
	js := &fakeJetStream{}
	metrics := newRecordingMetrics()
	pub := NewClickPublisher(js, metrics)

	event := model.ClickEvent{ID: "evt", LinkID: "l1", Code: "abc", Referer: "https://x.example", Timestamp: time.Now().UTC()}
	require.NoError(t, pub.Record(context.Background(), event))
	assert.Equal(t, model.ClickStreamSubject, js.subject)

	var decoded model.ClickEvent
	require.NoError(t, json.Unmarshal(js.data, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.LinkID, decoded.LinkID)
	assert.Equal(t, 1, metrics.clickCount(ClickQueued))

	js.err = nats.ErrNoResponders
	assert.ErrorIs(t, pub.Record(context.Background(), event), nats.ErrNoResponders)
	assert.Equal(t, 1, metrics.clickCount(ClickFailed))
}

// fakeRedisList implements the list commands the click queue uses.
type fakeRedisList struct {
	redis.Cmdable
	mu    sync.Mutex
	items []string
}

func (f *fakeRedisList) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		switch v := v.(type) {
		case []byte:
			f.items = append(f.items, string(v))
		case string:
			f.items = append(f.items, v)
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.items)))
	return cmd
}

func (f *fakeRedisList) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	f.mu.Lock()
	if len(f.items) > 0 {
		head := f.items[0]
		f.items = f.items[1:]
		f.mu.Unlock()
		cmd.SetVal([]string{keys[0], head})
		return cmd
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		cmd.SetErr(ctx.Err())
	case <-time.After(10 * time.Millisecond):
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedisList) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func TestRedisClickQueue_RoundTrip(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})
	ctx := context.Background()
	link, err := reg.service.CreateLink(ctx, CreateLinkInput{URL: "https://q.example", CustomCode: "queued"})
	require.NoError(t, err)

	rdb := &fakeRedisList{}
	queue := NewRedisClickQueue(rdb, "clicks", nil)
	require.NoError(t, queue.Record(ctx, model.NewClickEvent(link, "", "", "https://ref.example")))
	require.NoError(t, queue.Record(ctx, model.NewClickEvent(link, "", "", "")))
	assert.Equal(t, 2, rdb.len())

	consumer := NewRedisClickConsumer(rdb, "clicks", 2, nil, NewStoreRecorder(reg.clicks, nil, nil))
	consumer.Start(ctx)
	defer consumer.Stop()

	require.Eventually(t, func() bool {
		n, err := reg.clicks.CountByLink(ctx, link.ID)
		return err == nil && n == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.Zero(t, rdb.len())
}

func TestRedisClickConsumer_RequeuesOnFailure(t *testing.T) {
	var attempts atomic.Int32
	sink := NewStoreRecorder(&mockClickRepository{
		createFn: func(context.Context, *model.Click) error {
			if attempts.Add(1) == 1 {
				return errors.New("store down")
			}
			return nil
		},
	}, nil, nil)

	rdb := &fakeRedisList{}
	queue := NewRedisClickQueue(rdb, "clicks", nil)
	require.NoError(t, queue.Record(context.Background(), model.ClickEvent{ID: "e1", LinkID: "l1"}))

	consumer := NewRedisClickConsumer(rdb, "clicks", 1, nil, sink)
	consumer.Start(context.Background())
	defer consumer.Stop()

	require.Eventually(t, func() bool { return attempts.Load() == 2 }, 4*time.Second, 20*time.Millisecond)
	assert.Zero(t, rdb.len())
}

var _ repository.ClickRepository = (*mockClickRepository)(nil)
