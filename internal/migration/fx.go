package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/shopforge/invoicepress/internal/config"
	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
	printjobdomain "github.com/shopforge/invoicepress/internal/printjob/domain"
	printjobqueue "github.com/shopforge/invoicepress/internal/printjob/queue"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Non-postgres dialects (sqlite dev setups, mysql) derive the
		// schema from the models instead.
		if err := conn.AutoMigrate(
			&invoicedomain.Invoice{},
			&invoicedomain.InvoiceSequence{},
			&printjobdomain.PrintJob{},
		); err != nil {
			return err
		}
		return printjobqueue.AutoMigrate(conn)
	}),
)
