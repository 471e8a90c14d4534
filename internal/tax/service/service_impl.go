package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid/v2"
	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	taxdomain "github.com/shopforge/invoicepress/internal/tax/domain"
	"go.uber.org/zap"
)

type engine struct {
	log        *zap.Logger
	clock      clock.Clock
	defaultHSN string
}

func NewEngine(cfg config.Config, log *zap.Logger, clk clock.Clock) taxdomain.Engine {
	return &engine{
		log:        log.Named("tax"),
		clock:      clk,
		defaultHSN: cfg.Invoice.DefaultHSN,
	}
}

// Calculate validates the full input before any computation, then
// classifies the supply and splits the tax amount.
func (e *engine) Calculate(ctx context.Context, input taxdomain.CalculationInput) (*taxdomain.TaxBreakdown, error) {
	customerState, storeState, err := validate(input)
	if err != nil {
		return nil, err
	}

	rate := taxdomain.LowRate
	if input.TaxableSubtotal >= taxdomain.RateThreshold {
		rate = taxdomain.HighRate
	}

	totalTax := input.TaxableSubtotal.ApplyRate(rate)
	if totalTax < 0 {
		return nil, fmt.Errorf("%w: negative tax for subtotal %s", apperr.ErrCalculation, input.TaxableSubtotal)
	}

	breakdown := &taxdomain.TaxBreakdown{
		Rate:          rate,
		TaxableAmount: input.TaxableSubtotal,
		TotalTax:      totalTax,
		HSNCode:       ResolveHSN(input.HSNCode, input.ProductHint, e.defaultHSN),
	}

	if customerState == storeState {
		breakdown.GSTType = taxdomain.GSTTypeIntrastate
		// Equal halves; an odd paisa remainder goes to CGST so the
		// components always sum exactly to the total.
		breakdown.SGST = totalTax / 2
		breakdown.CGST = totalTax - breakdown.SGST
	} else {
		breakdown.GSTType = taxdomain.GSTTypeInterstate
		breakdown.IGST = totalTax
	}

	breakdown.Audit = taxdomain.AuditRecord{
		CorrelationID: ulid.Make().String(),
		ComputedAt:    e.clock.Now(),
		CustomerState: customerState,
		StoreState:    storeState,
		Subtotal:      input.TaxableSubtotal,
		OrderTotal:    input.OrderTotal,
		Rate:          rate,
		TotalTax:      totalTax,
	}

	e.log.Debug("tax computed",
		zap.String("correlation_id", breakdown.Audit.CorrelationID),
		zap.String("gst_type", string(breakdown.GSTType)),
		zap.Float64("rate", rate),
		zap.Int64("total_tax_paise", int64(totalTax)),
	)

	_ = ctx
	return breakdown, nil
}

// validate accumulates every violated constraint before failing.
func validate(input taxdomain.CalculationInput) (customerState, storeState string, err error) {
	var result *multierror.Error

	if input.TaxableSubtotal <= 0 {
		result = multierror.Append(result, fmt.Errorf("taxable subtotal must be positive, got %s", input.TaxableSubtotal))
	}
	if input.OrderTotal <= 0 {
		result = multierror.Append(result, fmt.Errorf("order total must be positive, got %s", input.OrderTotal))
	}

	customerState, ok := taxdomain.NormalizeState(input.CustomerState)
	if customerState == "" {
		result = multierror.Append(result, fmt.Errorf("customer state code is required"))
	} else if !ok {
		result = multierror.Append(result, fmt.Errorf("unknown customer state code %q", customerState))
	}

	storeState, ok = taxdomain.NormalizeState(input.StoreState)
	if storeState == "" {
		result = multierror.Append(result, fmt.Errorf("store state code is required"))
	} else if !ok {
		result = multierror.Append(result, fmt.Errorf("unknown store state code %q", storeState))
	}

	if result.ErrorOrNil() == nil {
		return customerState, storeState, nil
	}

	violations := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		violations = append(violations, e.Error())
	}
	return "", "", apperr.NewValidation(violations)
}
