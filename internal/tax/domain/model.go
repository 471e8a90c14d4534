// Package domain holds the GST determination model.
package domain

import (
	"strings"
	"time"

	"github.com/shopforge/invoicepress/internal/money"
)

// GSTType classifies a supply by jurisdiction of buyer vs seller.
type GSTType string

const (
	// GSTTypeIntrastate splits tax into equal CGST and SGST halves.
	GSTTypeIntrastate GSTType = "INTRASTATE"
	// GSTTypeInterstate charges the full amount as IGST.
	GSTTypeInterstate GSTType = "INTERSTATE"
)

// Engine rate slabs. Orders below RateThreshold attract the low slab.
const (
	LowRate  = 0.05
	HighRate = 0.12
)

// RateThreshold is the taxable-subtotal cutoff between the slabs.
var RateThreshold = money.FromRupees(1000)

// stateCodes enumerates the recognised GST state codes.
var stateCodes = map[string]string{
	"AN": "Andaman and Nicobar Islands",
	"AP": "Andhra Pradesh",
	"AR": "Arunachal Pradesh",
	"AS": "Assam",
	"BR": "Bihar",
	"CG": "Chhattisgarh",
	"CH": "Chandigarh",
	"DL": "Delhi",
	"GA": "Goa",
	"GJ": "Gujarat",
	"HP": "Himachal Pradesh",
	"HR": "Haryana",
	"JH": "Jharkhand",
	"JK": "Jammu and Kashmir",
	"KA": "Karnataka",
	"KL": "Kerala",
	"LA": "Ladakh",
	"MH": "Maharashtra",
	"ML": "Meghalaya",
	"MN": "Manipur",
	"MP": "Madhya Pradesh",
	"MZ": "Mizoram",
	"NL": "Nagaland",
	"OD": "Odisha",
	"PB": "Punjab",
	"PY": "Puducherry",
	"RJ": "Rajasthan",
	"SK": "Sikkim",
	"TN": "Tamil Nadu",
	"TR": "Tripura",
	"TS": "Telangana",
	"UK": "Uttarakhand",
	"UP": "Uttar Pradesh",
	"WB": "West Bengal",
}

// NormalizeState trims and uppercases a state code and reports whether
// it belongs to the enumerated set. Idempotent.
func NormalizeState(code string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	_, ok := stateCodes[normalized]
	return normalized, ok
}

// StateName returns the display name for a normalized state code.
func StateName(code string) string {
	return stateCodes[code]
}

// CalculationInput is the validated input to the tax engine.
type CalculationInput struct {
	OrderTotal      money.Paise
	TaxableSubtotal money.Paise
	CustomerState   string
	StoreState      string
	HSNCode         string
	ProductHint     string
}

// TaxBreakdown is the engine's output for one order.
type TaxBreakdown struct {
	GSTType       GSTType
	Rate          float64
	TaxableAmount money.Paise
	TotalTax      money.Paise

	// Intrastate components. Zero when GSTType is INTERSTATE.
	CGST money.Paise
	SGST money.Paise

	// Interstate component. Zero when GSTType is INTRASTATE.
	IGST money.Paise

	HSNCode string

	Audit AuditRecord
}

// AuditRecord ties a computation to its inputs for traceability.
type AuditRecord struct {
	CorrelationID string
	ComputedAt    time.Time
	CustomerState string
	StoreState    string
	Subtotal      money.Paise
	OrderTotal    money.Paise
	Rate          float64
	TotalTax      money.Paise
}
