package domain

import (
	"context"
)

// GenerateOptions selects layout and post-generation behaviour.
type GenerateOptions struct {
	Layout    string
	SendEmail bool
}

// GenerateResult is returned for a successful single generation.
type GenerateResult struct {
	InvoiceNumber string `json:"invoiceNumber"`
	ArtifactKey   string `json:"artifactKey"`
	DownloadURL   string `json:"downloadUrl"`
	Size          int64  `json:"size"`
}

// Generator runs the full order-to-artifact pipeline for one order.
type Generator interface {
	GenerateOne(ctx context.Context, shop, orderID string, opts GenerateOptions) (*GenerateResult, error)
}

// Repository persists invoices and allocates invoice numbers.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByOrder(ctx context.Context, shop, orderID string) (*Invoice, error)
	// NextInvoiceNumber returns a unique, monotonically increasing
	// number for the shop, safe under concurrent callers.
	NextInvoiceNumber(ctx context.Context, shop string) (string, error)
	MarkSent(ctx context.Context, shop, invoiceNumber string) error
}
