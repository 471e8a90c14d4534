package printjob

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/shopforge/invoicepress/internal/archive"
	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/printjob/queue"
	"github.com/shopforge/invoicepress/internal/printjob/service"
	"github.com/shopforge/invoicepress/internal/ratelimit"
)

func newQueue(db *gorm.DB, clk clock.Clock) queue.Queue {
	return queue.NewGormQueue(db, clk)
}

func newShopLocker(l *ratelimit.Locker) service.ShopLocker {
	return l
}

// Module wires the job orchestrator without the polling worker; the
// API process uses this to create, inspect and cancel jobs.
var Module = fx.Module("printjob.service",
	fx.Provide(newQueue),
	fx.Provide(newShopLocker),
	fx.Provide(archive.NewBundler),
	fx.Provide(service.NewService),
)

// WorkerModule adds the queue-polling loop on top of Module. Only the
// worker process includes it.
var WorkerModule = fx.Module("printjob.worker",
	fx.Provide(service.NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, w *service.Worker) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				w.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
