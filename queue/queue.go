package queue

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownTask = errors.New("no handler registered for task")
	ErrClosed      = errors.New("queue closed")
	// ErrPermanent marks a failure that no retry can fix.
	ErrPermanent   = errors.New("permanent failure")
)

// Permanent tags err so the queue records the job as failed without
// retrying it.
func Permanent(err error) error {
	if err == nil || errors.Is(err, ErrPermanent) {
		return err
	}
	return fmt.Errorf("%w: %w", err, ErrPermanent)
}

type Task struct {
	Name    string
	Payload []byte
}

// Outcome maps record ids to whether they were committed.
type Outcome map[string]bool

type Handler func(ctx context.Context, task Task) (Outcome, error)

type Queue interface {
	Register(name string, handler Handler)
	Enqueue(ctx context.Context, task Task) (string, error)
	Start(ctx context.Context) error
	Close() error
}
