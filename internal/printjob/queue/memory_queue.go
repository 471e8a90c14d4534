package queue

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// MemoryQueue is an in-process Queue for tests and single-node runs.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks []memoryTask
}

type memoryTask struct {
	task        Task
	availableAt time.Time
	claimed     bool
}

func NewMemoryQueue() *MemoryQueue { return &MemoryQueue{} }

func (q *MemoryQueue) Enqueue(_ context.Context, jobID snowflake.ID, shop string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, memoryTask{
		task:        Task{ID: jobID, JobID: jobID, Shop: shop},
		availableAt: time.Now(),
	})
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for i := range q.tasks {
		if q.tasks[i].claimed || q.tasks[i].availableAt.After(now) {
			continue
		}
		q.tasks[i].claimed = true
		t := q.tasks[i].task
		return &t, nil
	}
	return nil, nil
}

func (q *MemoryQueue) Ack(_ context.Context, taskID snowflake.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.tasks {
		if q.tasks[i].task.ID == taskID {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) Nack(_ context.Context, taskID snowflake.ID, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.tasks {
		if q.tasks[i].task.ID == taskID {
			q.tasks[i].claimed = false
			q.tasks[i].availableAt = time.Now().Add(delay)
			return nil
		}
	}
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
