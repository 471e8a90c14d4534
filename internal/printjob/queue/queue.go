// Package queue provides the durable work queue feeding bulk print
// jobs to the worker.
package queue

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Task is one claimed unit of work. A task stays claimed until it is
// acked (done) or nacked (made available again after a delay).
type Task struct {
	ID    snowflake.ID
	JobID snowflake.ID
	Shop  string
}

// Queue hands bulk jobs to workers. Dequeue returns (nil, nil) when no
// task is available.
type Queue interface {
	Enqueue(ctx context.Context, jobID snowflake.ID, shop string) error
	Dequeue(ctx context.Context) (*Task, error)
	Ack(ctx context.Context, taskID snowflake.ID) error
	Nack(ctx context.Context, taskID snowflake.ID, delay time.Duration) error
}
