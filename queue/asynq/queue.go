package asynq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/w-h-a/lio/queue"
	"go.uber.org/zap"
)

type asynqQueue struct {
	options queue.Options
	client  *asynq.Client
	server  *asynq.Server
	mux     *asynq.ServeMux
	started bool
	mtx     sync.Mutex
}

func (q *asynqQueue) Register(name string, handler queue.Handler) {
	q.mux.HandleFunc(name, q.wrap(handler))
}

func (q *asynqQueue) Enqueue(ctx context.Context, task queue.Task) (string, error) {
	id := uuid.NewString()

	t := asynq.NewTask(task.Name, task.Payload)

	info, err := q.client.EnqueueContext(
		ctx,
		t,
		asynq.TaskID(id),
		asynq.MaxRetry(q.options.MaxRetry),
		asynq.Timeout(q.options.Timeout),
		asynq.Queue(q.options.Name),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", task.Name, err)
	}

	q.options.Tracker.Queued(info.ID, task.Name)

	q.options.Logger.Debug("task enqueued", zap.String("job_id", info.ID), zap.String("task", task.Name), zap.String("queue", info.Queue))

	return info.ID, nil
}

func (q *asynqQueue) Start(ctx context.Context) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.started {
		return nil
	}

	if err := q.server.Start(q.mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}

	q.started = true

	q.options.Logger.Info("asynq queue started", zap.String("queue", q.options.Name), zap.Int("concurrency", q.options.Concurrency))

	return nil
}

func (q *asynqQueue) Close() error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.started {
		q.server.Shutdown()
		q.started = false
	}

	return q.client.Close()
}

func (q *asynqQueue) wrap(handler queue.Handler) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		id, _ := asynq.GetTaskID(ctx)
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		q.options.Tracker.Started(id, t.Type())

		outcome, err := handler(ctx, queue.Task{Name: t.Type(), Payload: t.Payload()})

		permanent := errors.Is(err, queue.ErrPermanent)

		q.options.Tracker.Finished(id, outcome, err, err == nil || permanent || retried >= maxRetry)

		if permanent {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}

		return err
	}
}

func NewQueue(opts ...queue.Option) queue.Queue {
	options := queue.NewOptions(opts...)

	redis, ok := RedisFrom(options.Context)
	if !ok || len(redis.Addr) == 0 {
		detail := "a redis address is required for asynq queue"
		slog.ErrorContext(options.Context, detail)
		panic(detail)
	}

	logger := options.Logger

	server := asynq.NewServer(
		redis,
		asynq.Config{
			Concurrency: options.Concurrency,
			Queues: map[string]int{
				options.Name: 1,
			},
			RetryDelayFunc: func(n int, err error, t *asynq.Task) time.Duration {
				return options.Backoff * time.Duration(n+1)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				id, _ := asynq.GetTaskID(ctx)
				logger.Error("task failed", zap.String("job_id", id), zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)

	return &asynqQueue{
		options: options,
		client:  asynq.NewClient(redis),
		server:  server,
		mux:     asynq.NewServeMux(),
		mtx:     sync.Mutex{},
	}
}
