package invoice

import (
	"github.com/shopforge/invoicepress/internal/invoice/render"
	"github.com/shopforge/invoicepress/internal/invoice/repository"
	"github.com/shopforge/invoicepress/internal/invoice/service"
	"github.com/shopforge/invoicepress/internal/tax"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	tax.Module,
	fx.Provide(repository.NewRepository),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewGenerator),
)
