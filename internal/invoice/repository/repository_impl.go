package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/config"
	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
	"github.com/shopforge/invoicepress/pkg/db"
	"gorm.io/gorm"
)

// maxAllocRetries bounds the compare-and-swap loop when concurrent
// workers race on the same shop's sequence.
const maxAllocRetries = 25

type repository struct {
	db     *gorm.DB
	prefix string
	start  int64
}

func NewRepository(gdb *gorm.DB, cfg config.Config) invoicedomain.Repository {
	return &repository{
		db:     gdb,
		prefix: cfg.Invoice.NumberPrefix,
		start:  cfg.Invoice.StartNumber,
	}
}

func (r *repository) Create(ctx context.Context, inv *invoicedomain.Invoice) error {
	err := r.db.WithContext(ctx).Create(inv).Error
	if db.IsDuplicateKeyErr(err) {
		return fmt.Errorf("invoice number %s for %s: %w", inv.InvoiceNumber, inv.Shop, apperr.ErrConflict)
	}
	return err
}

func (r *repository) GetByOrder(ctx context.Context, shop, orderID string) (*invoicedomain.Invoice, error) {
	var inv invoicedomain.Invoice
	err := r.db.WithContext(ctx).
		Where("shop = ? AND order_id = ?", shop, orderID).
		Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invoice for order %s: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// NextInvoiceNumber allocates via an atomic per-shop sequence. The row
// is advanced with a conditional update; losing a race retries with a
// fresh read, bounded by maxAllocRetries.
func (r *repository) NextInvoiceNumber(ctx context.Context, shop string) (string, error) {
	for attempt := 0; attempt < maxAllocRetries; attempt++ {
		var seq invoicedomain.InvoiceSequence
		err := r.db.WithContext(ctx).
			Where("shop = ?", shop).
			Take(&seq).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = invoicedomain.InvoiceSequence{Shop: shop, NextNumber: r.start + 1}
			createErr := r.db.WithContext(ctx).Create(&seq).Error
			if createErr == nil {
				return r.format(r.start), nil
			}
			if db.IsDuplicateKeyErr(createErr) {
				// another worker seeded the row first
				continue
			}
			return "", createErr
		}
		if err != nil {
			return "", err
		}

		res := r.db.WithContext(ctx).
			Model(&invoicedomain.InvoiceSequence{}).
			Where("shop = ? AND next_number = ?", shop, seq.NextNumber).
			Update("next_number", seq.NextNumber+1)
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 1 {
			return r.format(seq.NextNumber), nil
		}
		// lost the CAS race, re-read and retry
	}
	return "", fmt.Errorf("invoice sequence for %s contended beyond %d attempts: %w",
		shop, maxAllocRetries, apperr.ErrConflict)
}

func (r *repository) MarkSent(ctx context.Context, shop, invoiceNumber string) error {
	return r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("shop = ? AND invoice_number = ?", shop, invoiceNumber).
		Update("status", invoicedomain.InvoiceStatusSent).Error
}

func (r *repository) format(n int64) string {
	return fmt.Sprintf("%s-%d", r.prefix, n)
}
