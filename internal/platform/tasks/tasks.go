package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"jobscout/internal/platform/redis"
)

const (
	TaskTypePipelineRun = "pipeline:run"

	QueueDefault = "default"
)

// EnqueueOptions controls delivery of one task.
type EnqueueOptions struct {
	Queue      string
	MaxRetries int
	Timeout    time.Duration
	TaskID     string
}

func (o EnqueueOptions) asynq() []asynq.Option {
	queue := o.Queue
	if queue == "" {
		queue = QueueDefault
	}
	opts := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(max(o.MaxRetries, 0))}
	if o.Timeout > 0 {
		opts = append(opts, asynq.Timeout(o.Timeout))
	}
	if o.TaskID != "" {
		opts = append(opts, asynq.TaskID(o.TaskID))
	}
	return opts
}

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

func (t *Client) Enqueue(ctx context.Context, task *asynq.Task, opts EnqueueOptions) error {
	_, err := t.c.EnqueueContext(ctx, task, opts.asynq()...)
	return err
}

func (t *Client) Close() error { return t.c.Close() }
