package pdf

import (
	"github.com/shopforge/invoicepress/internal/config"
	"go.uber.org/fx"
)

func NewPoolFromConfig(cfg config.Config) *Pool {
	return NewPool(cfg.Worker.SurfacePool)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(NewPoolFromConfig),
	fx.Provide(NewRasterizer),
)
