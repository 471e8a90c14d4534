package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	"github.com/shopforge/invoicepress/internal/invoice"
	"github.com/shopforge/invoicepress/internal/logger"
	"github.com/shopforge/invoicepress/internal/metrics"
	"github.com/shopforge/invoicepress/internal/migration"
	"github.com/shopforge/invoicepress/internal/orders"
	"github.com/shopforge/invoicepress/internal/printjob"
	"github.com/shopforge/invoicepress/internal/profile"
	"github.com/shopforge/invoicepress/internal/providers/email"
	"github.com/shopforge/invoicepress/internal/providers/pdf"
	"github.com/shopforge/invoicepress/internal/ratelimit"
	"github.com/shopforge/invoicepress/internal/server"
	"github.com/shopforge/invoicepress/internal/storage"
	"github.com/shopforge/invoicepress/pkg/db"
)

// The monolith serves the API and processes bulk jobs in one process.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,
		ratelimit.Module,
		storage.Module,

		orders.Module,
		profile.Module,
		email.Module,
		pdf.Module,
		invoice.Module,
		printjob.Module,
		printjob.WorkerModule,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
