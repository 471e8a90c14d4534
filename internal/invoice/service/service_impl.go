package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopforge/invoicepress/internal/clock"
	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
	"github.com/shopforge/invoicepress/internal/invoice/render"
	ordersdomain "github.com/shopforge/invoicepress/internal/orders/domain"
	profiledomain "github.com/shopforge/invoicepress/internal/profile/domain"
	"github.com/shopforge/invoicepress/internal/providers/email"
	"github.com/shopforge/invoicepress/internal/providers/pdf"
	"github.com/shopforge/invoicepress/internal/storage"
	taxdomain "github.com/shopforge/invoicepress/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Orders     ordersdomain.Provider
	Profile    profiledomain.Provider
	Tax        taxdomain.Engine
	Repo       invoicedomain.Repository
	Renderer   render.Renderer
	Rasterizer pdf.Rasterizer
	Storage    storage.Gateway
	Email      email.Provider
}

type generator struct {
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	orders     ordersdomain.Provider
	profile    profiledomain.Provider
	tax        taxdomain.Engine
	repo       invoicedomain.Repository
	renderer   render.Renderer
	rasterizer pdf.Rasterizer
	storage    storage.Gateway
	email      email.Provider
}

func NewGenerator(p Params) invoicedomain.Generator {
	return &generator{
		log:        p.Log.Named("invoice"),
		clock:      p.Clock,
		genID:      p.GenID,
		orders:     p.Orders,
		profile:    p.Profile,
		tax:        p.Tax,
		repo:       p.Repo,
		renderer:   p.Renderer,
		rasterizer: p.Rasterizer,
		storage:    p.Storage,
		email:      p.Email,
	}
}

// GenerateOne runs order fetch, tax determination, numbering, render,
// rasterization, and persistence for one order. Any stage error aborts
// the run; the invoice record is written only after the artifact is
// safely stored.
func (g *generator) GenerateOne(ctx context.Context, shop, orderID string, opts invoicedomain.GenerateOptions) (*invoicedomain.GenerateResult, error) {
	order, err := g.orders.GetOrder(ctx, shop, orderID)
	if err != nil {
		return nil, err
	}

	prof, err := g.profile.GetProfile(ctx, shop)
	if err != nil {
		return nil, err
	}

	storeState := prof.StateCode
	if storeState == "" {
		storeState = order.StoreState
	}

	breakdown, err := g.tax.Calculate(ctx, taxdomain.CalculationInput{
		OrderTotal:      order.Total,
		TaxableSubtotal: order.Subtotal,
		CustomerState:   order.CustomerState,
		StoreState:      storeState,
		HSNCode:         orderLevelHSN(order),
		ProductHint:     orderLevelHint(order),
	})
	if err != nil {
		return nil, err
	}

	number, err := g.repo.NextInvoiceNumber(ctx, shop)
	if err != nil {
		return nil, err
	}

	doc, html, err := g.renderer.Render(render.RenderInput{
		Layout:        opts.Layout,
		InvoiceNumber: number,
		IssuedAt:      g.clock.Now(),
		Order:         order,
		Tax:           breakdown,
		Profile:       prof,
	})
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", number, err)
	}

	output, err := g.rasterizer.Render(ctx, doc)
	if err != nil {
		return nil, err
	}

	artifact, err := g.storage.Save(ctx, shop, number+".pdf", output)
	if err != nil {
		return nil, err
	}

	record := &invoicedomain.Invoice{
		ID:            g.genID.Generate(),
		Shop:          shop,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		InvoiceNumber: number,
		SubtotalPaise: int64(breakdown.TaxableAmount),
		TaxPaise:      int64(breakdown.TotalTax),
		TotalPaise:    int64(breakdown.TaxableAmount + breakdown.TotalTax),
		GSTType:       string(breakdown.GSTType),
		Status:        invoicedomain.InvoiceStatusGenerated,
		ArtifactKey:   artifact.Key,
	}
	if err := g.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	g.log.Info("invoice generated",
		zap.String("shop", shop),
		zap.String("order_id", order.ID),
		zap.String("invoice_number", number),
		zap.String("correlation_id", breakdown.Audit.CorrelationID),
		zap.String("artifact_key", artifact.Key),
	)

	if opts.SendEmail && order.CustomerEmail != "" {
		subject := fmt.Sprintf("Invoice %s for order %s", number, order.OrderNumber)
		if mailErr := g.email.Send(ctx, []string{order.CustomerEmail}, subject, html); mailErr != nil {
			g.log.Warn("invoice mail trigger failed",
				zap.String("invoice_number", number),
				zap.Error(mailErr),
			)
		} else if markErr := g.repo.MarkSent(ctx, shop, number); markErr != nil {
			g.log.Warn("mark sent failed", zap.String("invoice_number", number), zap.Error(markErr))
		}
	}

	return &invoicedomain.GenerateResult{
		InvoiceNumber: number,
		ArtifactKey:   artifact.Key,
		DownloadURL:   DownloadURL(artifact.Key),
		Size:          artifact.Size,
	}, nil
}

// DownloadURL maps an artifact key onto its download route.
func DownloadURL(key string) string {
	return "/api/artifacts/" + key
}

func orderLevelHSN(order *ordersdomain.OrderSnapshot) string {
	for _, item := range order.Items {
		if item.HSNCode != "" {
			return item.HSNCode
		}
	}
	return ""
}

func orderLevelHint(order *ordersdomain.OrderSnapshot) string {
	for _, item := range order.Items {
		if item.Material != "" {
			return item.Material
		}
	}
	return ""
}
