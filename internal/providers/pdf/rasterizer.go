// Package pdf rasterizes rendered invoice documents into paginated
// PDF bytes.
package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/invoice/render"
	"go.uber.org/zap"
)

// Rasterizer converts a document model into output bytes.
type Rasterizer interface {
	Render(ctx context.Context, doc *render.Document) ([]byte, error)
}

type marotoRasterizer struct {
	pool *Pool
	log  *zap.Logger
}

func NewRasterizer(pool *Pool, log *zap.Logger) Rasterizer {
	return &marotoRasterizer{
		pool: pool,
		log:  log.Named("pdf"),
	}
}

// Render acquires a surface, generates the PDF, and releases the
// surface on every exit path. Engine failures and timeouts surface as
// retryable ResourceErrors; the failed surface is discarded.
func (r *marotoRasterizer) Render(ctx context.Context, doc *render.Document) ([]byte, error) {
	s, err := r.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}

	m := buildEngine(doc)

	type result struct {
		doc core.Document
		err error
	}
	ch := make(chan result, 1)
	go func() {
		generated, genErr := m.Generate()
		ch <- result{doc: generated, err: genErr}
	}()

	select {
	case <-ctx.Done():
		r.pool.discard(s)
		return nil, apperr.NewResource("render pdf", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			r.pool.discard(s)
			return nil, apperr.NewResource("render pdf", res.err)
		}
		r.pool.release(s)
		return res.doc.GetBytes(), nil
	}
}

func buildEngine(doc *render.Document) core.Maroto {
	page := doc.Page

	builder := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(page.MarginMM).
		WithTopMargin(page.MarginMM).
		WithRightMargin(page.MarginMM).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		})
	if page.Landscape {
		builder = builder.WithOrientation(orientation.Horizontal)
	}

	m := maroto.New(builder.Build())

	// Header: company identity left, invoice identity right.
	if page.ShowLogo && doc.LogoRef != "" {
		m.AddRow(18,
			image.NewFromFileCol(3, doc.LogoRef, props.Rect{Percent: 80}),
			col.New(9),
		)
	}
	m.AddRow(8,
		text.NewCol(8, doc.CompanyName, props.Text{Size: 14, Style: fontstyle.Bold}),
		text.NewCol(4, "TAX INVOICE", props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, line := range doc.AddressLines {
		m.AddRow(4, text.NewCol(12, line, props.Text{Size: 8}))
	}
	if doc.GSTIN != "" {
		m.AddRow(5, text.NewCol(12, "GSTIN: "+doc.GSTIN, props.Text{Size: 8, Style: fontstyle.Bold}))
	}

	m.AddRow(12,
		col.New(6).Add(
			text.New("Invoice: "+doc.InvoiceNumber, props.Text{Size: 9, Top: 2}),
			text.New("Issued: "+doc.IssueDate, props.Text{Size: 9, Top: 6}),
		),
		col.New(6).Add(
			text.New("Order: "+doc.OrderNumber+" ("+doc.OrderDate+")", props.Text{Size: 9, Top: 2, Align: align.Right}),
			text.New("Place of supply: "+doc.PlaceOfSupply, props.Text{Size: 9, Top: 6, Align: align.Right}),
		),
	)

	// Bill to
	m.AddRow(6, text.NewCol(12, "Bill to", props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}))
	m.AddRow(5, text.NewCol(12, doc.BillToName, props.Text{Size: 9}))
	for _, line := range doc.BillToLines {
		m.AddRow(4, text.NewCol(12, line, props.Text{Size: 8}))
	}

	// Line items
	m.AddRow(8,
		text.NewCol(1, "#", props.Text{Size: 8, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(4, "Item", props.Text{Size: 8, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(1, "HSN", props.Text{Size: 8, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(1, "Qty", props.Text{Size: 8, Style: fontstyle.Bold, Top: 2, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Size: 8, Style: fontstyle.Bold, Top: 2, Align: align.Right}),
		text.NewCol(1, "Tax", props.Text{Size: 8, Style: fontstyle.Bold, Top: 2, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Size: 8, Style: fontstyle.Bold, Top: 2, Align: align.Right}),
	)
	for _, item := range doc.Items {
		m.AddRow(7,
			text.NewCol(1, fmt.Sprintf("%d", item.SN), props.Text{Size: 8}),
			text.NewCol(4, item.Name, props.Text{Size: 8}),
			text.NewCol(1, item.HSNCode, props.Text{Size: 8}),
			text.NewCol(1, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, item.Tax, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 8, Align: align.Right}),
		)
	}

	// Tax summary and totals
	m.AddRow(7,
		col.New(7),
		text.NewCol(3, "Taxable amount", props.Text{Size: 9, Top: 2}),
		text.NewCol(2, doc.Subtotal, props.Text{Size: 9, Top: 2, Align: align.Right}),
	)
	for _, row := range doc.TaxRows {
		m.AddRow(6,
			col.New(7),
			text.NewCol(3, row.Label, props.Text{Size: 9}),
			text.NewCol(2, row.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(8,
		col.New(7),
		text.NewCol(3, "Total", props.Text{Size: 10, Style: fontstyle.Bold, Top: 1}),
		text.NewCol(2, doc.GrandTotal, props.Text{Size: 10, Style: fontstyle.Bold, Top: 1, Align: align.Right}),
	)

	if page.ShowBank {
		for _, line := range doc.BankLines {
			m.AddRow(4, text.NewCol(12, line, props.Text{Size: 8}))
		}
	}
	if page.ShowTerms && doc.Terms != "" {
		m.AddRow(10, text.NewCol(12, doc.Terms, props.Text{Size: 8, Top: 4}))
	}

	return m
}
