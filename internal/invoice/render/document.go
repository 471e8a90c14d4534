// Package render builds the structured invoice document and its HTML
// rendition. Rendering is a pure function of its inputs so identical
// orders always produce identical documents.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopforge/invoicepress/internal/money"
	ordersdomain "github.com/shopforge/invoicepress/internal/orders/domain"
	profiledomain "github.com/shopforge/invoicepress/internal/profile/domain"
	taxdomain "github.com/shopforge/invoicepress/internal/tax/domain"
)

// Layout names a document template.
type Layout string

const (
	LayoutClassic Layout = "classic"
	LayoutModern  Layout = "modern"
	LayoutMinimal Layout = "minimal"
)

// ResolveLayout maps a caller-selected name onto a known layout,
// falling back to classic.
func ResolveLayout(name string) Layout {
	switch Layout(strings.ToLower(strings.TrimSpace(name))) {
	case LayoutModern:
		return LayoutModern
	case LayoutMinimal:
		return LayoutMinimal
	default:
		return LayoutClassic
	}
}

// PageConfig carries rasterization geometry per layout.
type PageConfig struct {
	Landscape    bool
	MarginMM     float64
	ShowLogo     bool
	ShowBank     bool
	ShowTerms    bool
	AccentColor  string
	ItemsUpFront bool
}

// Page returns the rasterizer geometry for a layout.
func (l Layout) Page() PageConfig {
	switch l {
	case LayoutModern:
		return PageConfig{MarginMM: 15, ShowLogo: true, ShowBank: true, ShowTerms: true, AccentColor: "#0f766e", ItemsUpFront: true}
	case LayoutMinimal:
		return PageConfig{MarginMM: 10, ShowLogo: false, ShowBank: false, ShowTerms: false, AccentColor: "#111827"}
	default:
		return PageConfig{MarginMM: 20, ShowLogo: true, ShowBank: true, ShowTerms: true, AccentColor: "#1d4ed8"}
	}
}

// RenderInput is everything a render needs. No clocks, no I/O.
type RenderInput struct {
	Layout        string
	InvoiceNumber string
	IssuedAt      time.Time
	Order         *ordersdomain.OrderSnapshot
	Tax           *taxdomain.TaxBreakdown
	Profile       *profiledomain.BusinessProfile
}

// Document is the structured invoice model consumed by both the HTML
// template and the PDF rasterizer.
type Document struct {
	Layout Layout
	Page   PageConfig

	CompanyName  string
	GSTIN        string
	AddressLines []string
	CompanyEmail string
	CompanyPhone string
	LogoRef      string
	SignatureRef string

	InvoiceNumber string
	IssueDate     string
	OrderNumber   string
	OrderDate     string
	PlaceOfSupply string
	GSTType       taxdomain.GSTType

	BillToName  string
	BillToLines []string
	BillToEmail string

	Items []DocumentItem

	TaxRows    []TaxRow
	Subtotal   string
	TotalTax   string
	GrandTotal string

	BankLines []string
	Terms     string
}

// DocumentItem is one row of the line-item table.
type DocumentItem struct {
	SN        int
	Name      string
	HSNCode   string
	Quantity  int64
	UnitPrice string
	Amount    string
	Tax       string
}

// TaxRow is one row of the aggregate tax-summary table.
type TaxRow struct {
	Label  string
	Amount string
}

// BuildDocument assembles the document model. Deterministic: the issue
// date is an input, item order follows the order snapshot.
func BuildDocument(input RenderInput) *Document {
	layout := ResolveLayout(input.Layout)
	order := input.Order
	tax := input.Tax
	prof := input.Profile

	doc := &Document{
		Layout:        layout,
		Page:          layout.Page(),
		CompanyName:   prof.CompanyName,
		GSTIN:         prof.GSTIN,
		AddressLines:  prof.AddressLines,
		CompanyEmail:  prof.Email,
		CompanyPhone:  prof.Phone,
		LogoRef:       prof.LogoRef,
		SignatureRef:  prof.SignatureRef,
		InvoiceNumber: input.InvoiceNumber,
		IssueDate:     input.IssuedAt.UTC().Format("02 Jan 2006"),
		OrderNumber:   order.OrderNumber,
		OrderDate:     order.CreatedAt.UTC().Format("02 Jan 2006"),
		PlaceOfSupply: placeOfSupply(tax.Audit.CustomerState),
		GSTType:       tax.GSTType,
		BillToName:    order.CustomerName,
		BillToLines:   order.BillingLines,
		BillToEmail:   order.CustomerEmail,
		Subtotal:      tax.TaxableAmount.Display(),
		TotalTax:      tax.TotalTax.Display(),
		GrandTotal:    (tax.TaxableAmount + tax.TotalTax).Display(),
		Terms:         prof.Terms,
	}

	for i, item := range order.Items {
		amount := item.UnitPrice * money.Paise(item.Quantity)
		doc.Items = append(doc.Items, DocumentItem{
			SN:        i + 1,
			Name:      item.Name,
			HSNCode:   itemHSN(item, tax.HSNCode),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.Display(),
			Amount:    amount.Display(),
			Tax:       amount.ApplyRate(tax.Rate).Display(),
		})
	}

	half := tax.Rate / 2 * 100
	switch tax.GSTType {
	case taxdomain.GSTTypeIntrastate:
		doc.TaxRows = []TaxRow{
			{Label: fmt.Sprintf("CGST @ %.2f%%", half), Amount: tax.CGST.Display()},
			{Label: fmt.Sprintf("SGST @ %.2f%%", half), Amount: tax.SGST.Display()},
		}
	default:
		doc.TaxRows = []TaxRow{
			{Label: fmt.Sprintf("IGST @ %.2f%%", tax.Rate*100), Amount: tax.IGST.Display()},
		}
	}

	if prof.BankName != "" || prof.BankAccount != "" {
		doc.BankLines = bankLines(prof)
	}

	return doc
}

func itemHSN(item ordersdomain.LineItem, fallback string) string {
	if code := strings.TrimSpace(item.HSNCode); code != "" {
		return code
	}
	return fallback
}

func placeOfSupply(stateCode string) string {
	if name := taxdomain.StateName(stateCode); name != "" {
		return fmt.Sprintf("%s (%s)", name, stateCode)
	}
	return stateCode
}

func bankLines(prof *profiledomain.BusinessProfile) []string {
	var lines []string
	if prof.BankName != "" {
		lines = append(lines, "Bank: "+prof.BankName)
	}
	if prof.BankAccount != "" {
		lines = append(lines, "A/C: "+prof.BankAccount)
	}
	if prof.BankIFSC != "" {
		lines = append(lines, "IFSC: "+prof.BankIFSC)
	}
	return lines
}
