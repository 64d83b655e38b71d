package asynq

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/queue"
)

func TestNewQueueRequiresRedis(t *testing.T) {
	require.Panics(t, func() { NewQueue() })
}

func TestWrapTracksOutcome(t *testing.T) {
	tr := queue.NewTracker(0)
	q := &asynqQueue{options: queue.NewOptions(queue.WithTracker(tr))}

	var got queue.Task
	h := q.wrap(func(ctx context.Context, task queue.Task) (queue.Outcome, error) {
		got = task
		return queue.Outcome{"doc1": true}, nil
	})

	// without asynq metadata on the context the job id is empty
	tr.Queued("", "ingest:document")

	err := h(context.Background(), asynq.NewTask("ingest:document", []byte(`{"doc_id":"doc1"}`)))
	require.NoError(t, err)
	require.Equal(t, "ingest:document", got.Name)
	require.JSONEq(t, `{"doc_id":"doc1"}`, string(got.Payload))

	job, ok := tr.Get("")
	require.True(t, ok)
	require.Equal(t, queue.StatusSucceeded, job.Status)
	require.True(t, job.Outcomes["doc1"])
}

func TestWrapReturnsHandlerError(t *testing.T) {
	tr := queue.NewTracker(0)
	q := &asynqQueue{options: queue.NewOptions(queue.WithTracker(tr))}

	h := q.wrap(func(ctx context.Context, task queue.Task) (queue.Outcome, error) {
		return nil, errors.New("index write failed")
	})

	tr.Queued("", "ingest:batch")

	err := h(context.Background(), asynq.NewTask("ingest:batch", nil))
	require.EqualError(t, err, "index write failed")

	job, _ := tr.Get("")
	require.Equal(t, queue.StatusFailed, job.Status)
}

func TestRedisOption(t *testing.T) {
	opts := queue.NewOptions(WithRedis("localhost:6379", "secret", 2))

	redis, ok := RedisFrom(opts.Context)
	require.True(t, ok)
	require.Equal(t, "localhost:6379", redis.Addr)
	require.Equal(t, 2, redis.DB)
}

func TestWrapSkipsRetryOnPermanentFailure(t *testing.T) {
	tr := queue.NewTracker(0)
	q := &asynqQueue{options: queue.NewOptions(queue.WithTracker(tr))}

	h := q.wrap(func(ctx context.Context, task queue.Task) (queue.Outcome, error) {
		return nil, queue.Permanent(errors.New("bad ingest:file payload"))
	})

	tr.Queued("", "ingest:file")

	err := h(context.Background(), asynq.NewTask("ingest:file", []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, queue.ErrPermanent)

	job, _ := tr.Get("")
	require.Equal(t, queue.StatusFailed, job.Status)

	transient := q.wrap(func(ctx context.Context, task queue.Task) (queue.Outcome, error) {
		return nil, errors.New("index write failed")
	})
	require.NotErrorIs(t, transient(context.Background(), asynq.NewTask("ingest:file", nil)), asynq.SkipRetry)
}
