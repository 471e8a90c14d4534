package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/config"
	"github.com/shopforge/invoicepress/internal/printjob/domain"
	"github.com/shopforge/invoicepress/internal/printjob/queue"
)

// requeueDelay spaces out a task whose dequeue-to-process handoff hit
// an infrastructure error before the job itself could record anything.
const requeueDelay = 30 * time.Second

// Worker polls the queue and drives bulk jobs to completion. Multiple
// workers may run concurrently; the queue's claim semantics keep a job
// on exactly one of them.
type Worker struct {
	cfg   config.Config
	log   *zap.Logger
	queue queue.Queue
	svc   domain.Service
}

func NewWorker(cfg config.Config, log *zap.Logger, q queue.Queue, svc domain.Service) *Worker {
	return &Worker{
		cfg:   cfg,
		log:   log.Named("worker"),
		queue: q,
		svc:   svc,
	}
}

// Run blocks until ctx is done, polling for work.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Worker.PollInterval)
	defer ticker.Stop()

	w.log.Info("worker started", zap.Duration("poll_interval", w.cfg.Worker.PollInterval))
	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// drain processes every available task before going back to sleep.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.log.Error("dequeue failed", zap.Error(err))
			return
		}
		if task == nil {
			return
		}

		err = w.svc.Process(ctx, task.JobID)
		switch {
		case err == nil, apperr.IsNotFound(err):
			// Done, or the job record is gone; either way the task is
			// not worth keeping.
			if ackErr := w.queue.Ack(ctx, task.ID); ackErr != nil {
				w.log.Error("ack failed", zap.String("task_id", task.ID.String()), zap.Error(ackErr))
			}
		case apperr.IsResource(err):
			// Process already exhausted its own retries and marked the
			// job failed, so the task is finished too.
			w.log.Error("job failed on resources",
				zap.String("job_id", task.JobID.String()),
				zap.Error(err),
			)
			if ackErr := w.queue.Ack(ctx, task.ID); ackErr != nil {
				w.log.Error("ack failed", zap.String("task_id", task.ID.String()), zap.Error(ackErr))
			}
		default:
			w.log.Error("job processing error, requeuing",
				zap.String("job_id", task.JobID.String()),
				zap.Error(err),
			)
			if nackErr := w.queue.Nack(ctx, task.ID, requeueDelay); nackErr != nil {
				w.log.Error("nack failed", zap.String("task_id", task.ID.String()), zap.Error(nackErr))
			}
		}
	}
}
