package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/invoice/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleDocument() *render.Document {
	return &render.Document{
		Layout:        render.LayoutClassic,
		Page:          render.LayoutClassic.Page(),
		CompanyName:   "Shopforge Apparel Pvt Ltd",
		GSTIN:         "27AAPFU0939F1ZV",
		AddressLines:  []string{"4 Industrial Estate", "Mumbai, MH"},
		InvoiceNumber: "INV-1004",
		IssueDate:     "02 Mar 2026",
		OrderNumber:   "#1001",
		OrderDate:     "14 Feb 2026",
		PlaceOfSupply: "Maharashtra (MH)",
		BillToName:    "Asha Patel",
		BillToLines:   []string{"12 MG Road", "Pune, MH, 411001"},
		Items: []render.DocumentItem{
			{SN: 1, Name: "Cotton Kurta", HSNCode: "5208", Quantity: 2, UnitPrice: "₹400.00", Tax: "₹40.00", Amount: "₹800.00"},
		},
		TaxRows: []render.TaxRow{
			{Label: "CGST @ 2.50%", Amount: "₹20.00"},
			{Label: "SGST @ 2.50%", Amount: "₹20.00"},
		},
		Subtotal:   "₹800.00",
		TotalTax:   "₹40.00",
		GrandTotal: "₹840.00",
		BankLines:  []string{"Bank: HDFC Bank"},
		Terms:      "Goods once sold will not be taken back.",
	}
}

func TestRasterizer_ProducesPDF(t *testing.T) {
	pool := NewPool(1)
	rasterizer := NewRasterizer(pool, zap.NewNop())

	out, err := rasterizer.Render(context.Background(), sampleDocument())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRasterizer_SurfaceReturnedAfterSuccess(t *testing.T) {
	pool := NewPool(1)
	rasterizer := NewRasterizer(pool, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := rasterizer.Render(context.Background(), sampleDocument())
		require.NoError(t, err)
	}
	assert.Len(t, pool.surfaces, 1)
}

func TestRasterizer_TimeoutIsRetryableAndRecyclesSurface(t *testing.T) {
	pool := NewPool(1)
	rasterizer := NewRasterizer(pool, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rasterizer.Render(ctx, sampleDocument())
	require.Error(t, err)
	assert.True(t, apperr.IsResource(err))

	// The discarded surface must have been replaced.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel2()
	out, err := rasterizer.Render(ctx2, sampleDocument())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestPool_AcquireRespectsContext(t *testing.T) {
	pool := NewPool(1)
	held, err := pool.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.acquire(ctx)
	require.Error(t, err)
	assert.True(t, apperr.IsResource(err))

	pool.release(held)
}
