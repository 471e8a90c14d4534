package domain

import "context"

// Engine determines the GST treatment of a transaction.
type Engine interface {
	Calculate(ctx context.Context, input CalculationInput) (*TaxBreakdown, error)
}
