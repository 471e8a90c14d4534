package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
)

// Service drives the print-job lifecycle. Creation is cheap and
// synchronous; bulk processing happens on the worker via Process.
type Service interface {
	// GenerateSingle runs a one-order job inline and returns the result.
	GenerateSingle(ctx context.Context, shop, orderID string, opts invoicedomain.GenerateOptions) (*PrintJob, *invoicedomain.GenerateResult, error)

	// CreateBulk records a bulk job and enqueues it for the worker.
	CreateBulk(ctx context.Context, shop string, orderIDs []string, layout string) (*PrintJob, error)

	// Get returns a job scoped to its shop.
	Get(ctx context.Context, shop string, id snowflake.ID) (*PrintJob, error)

	// Cancel requests cooperative cancellation. Already-terminal jobs
	// are left untouched.
	Cancel(ctx context.Context, shop string, id snowflake.ID) error

	// Process executes a queued bulk job to a terminal status. It is
	// the worker's entry point.
	Process(ctx context.Context, id snowflake.ID) error
}
