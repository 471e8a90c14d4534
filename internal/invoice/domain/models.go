// Package domain contains persistence models for generated invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusGenerated InvoiceStatus = "GENERATED"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusFailed    InvoiceStatus = "FAILED"
)

// Invoice is the record of one generated invoice. It is created only
// after a successful render and persist, never speculatively.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	Shop          string        `gorm:"type:text;not null;index;uniqueIndex:ux_invoices_shop_number,priority:1"`
	OrderID       string        `gorm:"type:text;not null;index"`
	OrderNumber   string        `gorm:"type:text;not null"`
	InvoiceNumber string        `gorm:"type:text;not null;uniqueIndex:ux_invoices_shop_number,priority:2"`
	SubtotalPaise int64         `gorm:"not null"`
	TaxPaise      int64         `gorm:"not null"`
	TotalPaise    int64         `gorm:"not null"`
	GSTType       string        `gorm:"type:text;not null"`
	Status        InvoiceStatus `gorm:"type:text;not null;default:'GENERATED'"`
	ArtifactKey   string        `gorm:"type:text;not null"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceSequence holds the next invoice number for a shop. Allocation
// advances it with a compare-and-swap update, never a count query.
type InvoiceSequence struct {
	Shop       string    `gorm:"primaryKey;type:text"`
	NextNumber int64     `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }
