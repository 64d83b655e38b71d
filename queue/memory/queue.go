package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/lio/queue"
	"go.uber.org/zap"
)

type envelope struct {
	id   string
	task queue.Task
}

type memoryQueue struct {
	options  queue.Options
	handlers map[string]queue.Handler
	tasks    chan envelope
	done     chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	senders  sync.WaitGroup
	closed   bool
	mtx      sync.RWMutex
}

func (q *memoryQueue) Register(name string, handler queue.Handler) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	q.handlers[name] = handler
}

// Enqueue blocks while the buffer is full. The send happens outside the
// lock so Close can always proceed; Close then unblocks waiting senders.
func (q *memoryQueue) Enqueue(ctx context.Context, task queue.Task) (string, error) {
	q.mtx.RLock()
	if q.closed {
		q.mtx.RUnlock()
		return "", queue.ErrClosed
	}
	q.senders.Add(1)
	q.mtx.RUnlock()

	defer q.senders.Done()

	id := uuid.NewString()

	q.options.Tracker.Queued(id, task.Name)

	select {
	case q.tasks <- envelope{id: id, task: task}:
		return id, nil
	case <-q.done:
		q.options.Tracker.Finished(id, nil, queue.ErrClosed, true)
		return "", queue.ErrClosed
	case <-ctx.Done():
		q.options.Tracker.Finished(id, nil, ctx.Err(), true)
		return "", ctx.Err()
	}
}

func (q *memoryQueue) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	q.mtx.Lock()
	q.cancel = cancel
	q.mtx.Unlock()

	for i := 0; i < q.options.Concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.work(ctx)
		}()
	}

	q.options.Logger.Info("memory queue started", zap.Int("concurrency", q.options.Concurrency))

	return nil
}

func (q *memoryQueue) Close() error {
	q.mtx.Lock()
	if q.closed {
		q.mtx.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mtx.Unlock()

	// blocked senders give up once done is closed
	q.senders.Wait()
	q.wg.Wait()

	// run what is already buffered before stopping
	q.drain()

	if q.cancel != nil {
		q.cancel()
	}

	return nil
}

func (q *memoryQueue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case env := <-q.tasks:
			q.run(ctx, env)
		}
	}
}

// drain runs what is left in the buffer on the caller's goroutine once the
// workers have been told to stop. Without started workers the leftovers
// are recorded as failed.
func (q *memoryQueue) drain() {
	q.mtx.RLock()
	started := q.cancel != nil
	q.mtx.RUnlock()

	ctx := context.Background()
	for {
		select {
		case env := <-q.tasks:
			if started {
				q.run(ctx, env)
			} else {
				q.options.Tracker.Finished(env.id, nil, queue.ErrClosed, true)
			}
		default:
			return
		}
	}
}

func (q *memoryQueue) run(ctx context.Context, env envelope) {
	q.mtx.RLock()
	handler, ok := q.handlers[env.task.Name]
	q.mtx.RUnlock()

	if !ok {
		q.options.Tracker.Started(env.id, env.task.Name)
		q.options.Tracker.Finished(env.id, nil, fmt.Errorf("%w: %s", queue.ErrUnknownTask, env.task.Name), true)
		return
	}

	for retried := 0; ; retried++ {
		attempt := q.options.Tracker.Started(env.id, env.task.Name)

		outcome, err := q.attempt(ctx, handler, env.task)

		final := err == nil ||
			retried >= q.options.MaxRetry ||
			errors.Is(err, queue.ErrPermanent) ||
			ctx.Err() != nil

		q.options.Tracker.Finished(env.id, outcome, err, final)

		if err == nil {
			return
		}

		q.options.Logger.Warn(
			"task attempt failed",
			zap.String("job_id", env.id),
			zap.String("task", env.task.Name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if final {
			return
		}

		select {
		case <-ctx.Done():
			q.options.Tracker.Finished(env.id, outcome, ctx.Err(), true)
			return
		case <-time.After(q.options.Backoff * time.Duration(retried+1)):
		}
	}
}

func (q *memoryQueue) attempt(ctx context.Context, handler queue.Handler, task queue.Task) (outcome queue.Outcome, err error) {
	ctx, cancel := context.WithTimeout(ctx, q.options.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()

	return handler(ctx, task)
}

// NewQueue returns an in-process queue. Tasks are lost when the process
// exits.
func NewQueue(opts ...queue.Option) queue.Queue {
	options := queue.NewOptions(opts...)

	return &memoryQueue{
		options:  options,
		handlers: map[string]queue.Handler{},
		tasks:    make(chan envelope, 256),
		done:     make(chan struct{}),
		wg:       sync.WaitGroup{},
		mtx:      sync.RWMutex{},
	}
}
