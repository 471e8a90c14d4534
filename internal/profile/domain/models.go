// Package domain defines the business-profile boundary supplied by the
// settings collaborator.
package domain

import (
	"context"
	"regexp"
)

// gstinPattern is the fixed GSTIN format: state digits, PAN, entity
// code, default "Z", check character.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// BusinessProfile carries the seller identity rendered on invoices.
type BusinessProfile struct {
	CompanyName  string
	GSTIN        string
	AddressLines []string
	StateCode    string
	Email        string
	Phone        string
	BankName     string
	BankAccount  string
	BankIFSC     string
	LogoRef      string
	SignatureRef string
	Terms        string
}

// ValidGSTIN reports whether the registration id matches the fixed
// GSTIN format.
func (p BusinessProfile) ValidGSTIN() bool {
	return gstinPattern.MatchString(p.GSTIN)
}

// Provider resolves the active profile for a shop.
type Provider interface {
	GetProfile(ctx context.Context, shop string) (*BusinessProfile, error)
}
