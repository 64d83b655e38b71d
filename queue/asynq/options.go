package asynq

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/w-h-a/lio/queue"
)

type redisKey struct{}

// WithRedis sets the redis instance backing the queue.
func WithRedis(addr string, password string, db int) queue.Option {
	return func(o *queue.Options) {
		o.Context = context.WithValue(o.Context, redisKey{}, asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
	}
}

func RedisFrom(ctx context.Context) (asynq.RedisClientOpt, bool) {
	opt, ok := ctx.Value(redisKey{}).(asynq.RedisClientOpt)
	return opt, ok
}
