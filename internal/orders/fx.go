package orders

import (
	"github.com/shopforge/invoicepress/internal/orders/client"
	"go.uber.org/fx"
)

var Module = fx.Module("orders",
	fx.Provide(client.New),
)
