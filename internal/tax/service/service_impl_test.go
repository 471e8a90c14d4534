package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	"github.com/shopforge/invoicepress/internal/money"
	taxdomain "github.com/shopforge/invoicepress/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine() taxdomain.Engine {
	return NewEngine(config.Config{}, zap.NewNop(), clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestCalculate_IntrastateLowSlab(t *testing.T) {
	engine := newTestEngine()

	out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.FromRupees(840),
		TaxableSubtotal: money.FromRupees(800),
		CustomerState:   "MH",
		StoreState:      "MH",
	})
	require.NoError(t, err)

	assert.Equal(t, taxdomain.GSTTypeIntrastate, out.GSTType)
	assert.Equal(t, 0.05, out.Rate)
	assert.Equal(t, money.FromRupees(40), out.TotalTax)
	assert.Equal(t, money.FromRupees(20), out.CGST)
	assert.Equal(t, money.FromRupees(20), out.SGST)
	assert.Equal(t, money.Paise(0), out.IGST)
}

func TestCalculate_InterstateHighSlab(t *testing.T) {
	engine := newTestEngine()

	out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.FromRupees(1680),
		TaxableSubtotal: money.FromRupees(1500),
		CustomerState:   "DL",
		StoreState:      "KA",
	})
	require.NoError(t, err)

	assert.Equal(t, taxdomain.GSTTypeInterstate, out.GSTType)
	assert.Equal(t, 0.12, out.Rate)
	assert.Equal(t, money.FromRupees(180), out.TotalTax)
	assert.Equal(t, money.FromRupees(180), out.IGST)
	assert.Equal(t, money.Paise(0), out.CGST)
	assert.Equal(t, money.Paise(0), out.SGST)
}

func TestCalculate_RateSlabBoundary(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		subtotal money.Paise
		want     float64
	}{
		{money.FromRupees(0.01), 0.05},
		{money.FromRupees(999.99), 0.05},
		{money.FromRupees(1000), 0.12},
		{money.FromRupees(5000), 0.12},
	}
	for _, tc := range cases {
		out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
			OrderTotal:      tc.subtotal,
			TaxableSubtotal: tc.subtotal,
			CustomerState:   "TN",
			StoreState:      "TN",
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, out.Rate, "subtotal %s", tc.subtotal)
	}
}

func TestCalculate_OddPaisaRemainderGoesToCGST(t *testing.T) {
	engine := newTestEngine()

	// 5% of 12.35 is 0.6175, rounded to 62 paise, an odd split.
	out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.FromRupees(12.97),
		TaxableSubtotal: money.FromRupees(12.35),
		CustomerState:   "GJ",
		StoreState:      "GJ",
	})
	require.NoError(t, err)

	assert.Equal(t, money.Paise(62), out.TotalTax)
	assert.Equal(t, money.Paise(31), out.CGST)
	assert.Equal(t, money.Paise(31), out.SGST)

	// A genuinely odd total puts the extra paisa on CGST.
	out, err = engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.Paise(1330),
		TaxableSubtotal: money.Paise(1260), // 5% -> 63 paise
		CustomerState:   "GJ",
		StoreState:      "GJ",
	})
	require.NoError(t, err)
	assert.Equal(t, money.Paise(63), out.TotalTax)
	assert.Equal(t, money.Paise(32), out.CGST)
	assert.Equal(t, money.Paise(31), out.SGST)
	assert.Equal(t, out.TotalTax, out.CGST+out.SGST)
}

func TestCalculate_ComponentsAlwaysSumToTotal(t *testing.T) {
	engine := newTestEngine()

	for paise := money.Paise(1); paise < 5000; paise += 7 {
		out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
			OrderTotal:      paise,
			TaxableSubtotal: paise,
			CustomerState:   "up",
			StoreState:      " UP ",
		})
		require.NoError(t, err)
		assert.Equal(t, out.TotalTax, out.CGST+out.SGST)
		diff := out.CGST - out.SGST
		assert.True(t, diff == 0 || diff == 1, "halves differ by more than one paisa at %d", paise)
	}
}

func TestCalculate_NormalizesStateCodes(t *testing.T) {
	engine := newTestEngine()

	out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.FromRupees(500),
		TaxableSubtotal: money.FromRupees(500),
		CustomerState:   "  mh ",
		StoreState:      "MH",
	})
	require.NoError(t, err)
	assert.Equal(t, taxdomain.GSTTypeIntrastate, out.GSTType)
	assert.Equal(t, "MH", out.Audit.CustomerState)
}

func TestCalculate_AccumulatesAllViolations(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      0,
		TaxableSubtotal: -5,
		CustomerState:   "XX",
		StoreState:      "",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	var vErr *apperr.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Violations, 4)
}

func TestCalculate_AuditRecordPopulated(t *testing.T) {
	engine := newTestEngine()

	out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.FromRupees(100),
		TaxableSubtotal: money.FromRupees(100),
		CustomerState:   "KL",
		StoreState:      "TN",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.Audit.CorrelationID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), out.Audit.ComputedAt)
	assert.Equal(t, "KL", out.Audit.CustomerState)
	assert.Equal(t, "TN", out.Audit.StoreState)
	assert.Equal(t, out.TotalTax, out.Audit.TotalTax)
}

func TestNormalizeState_Idempotent(t *testing.T) {
	first, ok := taxdomain.NormalizeState(" mh ")
	require.True(t, ok)
	second, ok := taxdomain.NormalizeState(first)
	require.True(t, ok)
	assert.Equal(t, first, second)

	_, ok = taxdomain.NormalizeState("ZZ")
	assert.False(t, ok)
}

func TestCalculate_UsesConfiguredDefaultHSN(t *testing.T) {
	cfg := config.Config{}
	cfg.Invoice.DefaultHSN = "6205"
	engine := NewEngine(cfg, zap.NewNop(), clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	out, err := engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.FromRupees(840),
		TaxableSubtotal: money.FromRupees(800),
		CustomerState:   "MH",
		StoreState:      "MH",
		ProductHint:     "denim",
	})
	require.NoError(t, err)
	assert.Equal(t, "6205", out.HSNCode)

	// A hint match still outranks the configured code.
	out, err = engine.Calculate(context.Background(), taxdomain.CalculationInput{
		OrderTotal:      money.FromRupees(840),
		TaxableSubtotal: money.FromRupees(800),
		CustomerState:   "MH",
		StoreState:      "MH",
		ProductHint:     "cotton",
	})
	require.NoError(t, err)
	assert.Equal(t, HSNCotton, out.HSNCode)
}
