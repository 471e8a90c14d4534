// Package domain defines the boundary types for the host commerce
// platform. Raw platform payloads are parsed and validated here before
// anything downstream sees them.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/money"
)

// OrderSnapshot is an immutable view of an order for the duration of
// one generation run.
type OrderSnapshot struct {
	ID          string
	OrderNumber string
	CreatedAt   time.Time
	Subtotal    money.Paise
	Total       money.Paise

	CustomerName  string
	CustomerEmail string
	CustomerState string
	StoreState    string
	BillingLines  []string

	Items []LineItem
}

// LineItem is one order line with its classification hints.
type LineItem struct {
	Name      string
	Quantity  int64
	UnitPrice money.Paise
	TaxRate   float64
	HSNCode   string
	Material  string
}

// Provider fetches order data from the commerce collaborator.
type Provider interface {
	GetOrder(ctx context.Context, shop, orderID string) (*OrderSnapshot, error)
}

// RawOrder mirrors the loosely-typed platform payload. Money values
// arrive as decimal strings.
type RawOrder struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	CreatedAt   time.Time     `json:"created_at"`
	Subtotal    string        `json:"subtotal_price"`
	Total       string        `json:"total_price"`
	LineItems   []RawLineItem `json:"line_items"`
	Customer    RawCustomer   `json:"customer"`
	BillingAddr RawAddress    `json:"billing_address"`
	StoreAddr   RawAddress    `json:"store_address"`
}

type RawLineItem struct {
	Title    string `json:"title"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
	TaxRate  string `json:"tax_rate"`
	HSNCode  string `json:"hsn_code"`
	Material string `json:"material"`
}

type RawCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RawAddress struct {
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	ProvinceCode string `json:"province_code"`
	Zip          string `json:"zip"`
}

// ParseOrder converts a raw platform payload into a validated
// OrderSnapshot, accumulating every violation before failing.
func ParseOrder(raw RawOrder) (*OrderSnapshot, error) {
	var result *multierror.Error

	if strings.TrimSpace(raw.ID) == "" {
		result = multierror.Append(result, fmt.Errorf("order id is required"))
	}
	if len(raw.LineItems) == 0 {
		result = multierror.Append(result, fmt.Errorf("order has no line items"))
	}

	subtotal, err := money.Parse(raw.Subtotal)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("subtotal: %w", err))
	}
	total, err := money.Parse(raw.Total)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("total: %w", err))
	}

	snapshot := &OrderSnapshot{
		ID:            strings.TrimSpace(raw.ID),
		OrderNumber:   strings.TrimSpace(raw.Name),
		CreatedAt:     raw.CreatedAt.UTC(),
		Subtotal:      subtotal,
		Total:         total,
		CustomerName:  strings.TrimSpace(raw.Customer.Name),
		CustomerEmail: strings.TrimSpace(raw.Customer.Email),
		CustomerState: strings.ToUpper(strings.TrimSpace(raw.BillingAddr.ProvinceCode)),
		StoreState:    strings.ToUpper(strings.TrimSpace(raw.StoreAddr.ProvinceCode)),
		BillingLines:  addressLines(raw.BillingAddr),
	}
	if snapshot.OrderNumber == "" {
		snapshot.OrderNumber = snapshot.ID
	}

	for i, item := range raw.LineItems {
		parsed, err := parseLineItem(item)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("line item %d: %w", i+1, err))
			continue
		}
		snapshot.Items = append(snapshot.Items, parsed)
	}

	if merr := result.ErrorOrNil(); merr != nil {
		violations := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			violations = append(violations, e.Error())
		}
		return nil, apperr.NewValidation(violations)
	}
	return snapshot, nil
}

func parseLineItem(raw RawLineItem) (LineItem, error) {
	if strings.TrimSpace(raw.Title) == "" {
		return LineItem{}, fmt.Errorf("title is required")
	}
	if raw.Quantity <= 0 {
		return LineItem{}, fmt.Errorf("quantity must be positive, got %d", raw.Quantity)
	}
	price, err := money.Parse(raw.Price)
	if err != nil {
		return LineItem{}, fmt.Errorf("price: %w", err)
	}

	item := LineItem{
		Name:      strings.TrimSpace(raw.Title),
		Quantity:  raw.Quantity,
		UnitPrice: price,
		HSNCode:   strings.TrimSpace(raw.HSNCode),
		Material:  strings.TrimSpace(raw.Material),
	}
	if rate := strings.TrimSpace(raw.TaxRate); rate != "" {
		parsed, err := money.Parse(rate)
		if err != nil {
			return LineItem{}, fmt.Errorf("tax rate: %w", err)
		}
		item.TaxRate = parsed.Rupees()
	}
	return item, nil
}

func addressLines(addr RawAddress) []string {
	var lines []string
	for _, part := range []string{addr.Address1, addr.Address2} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	cityLine := strings.TrimSpace(strings.Join(compact([]string{addr.City, addr.ProvinceCode, addr.Zip}), ", "))
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	return lines
}

func compact(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
