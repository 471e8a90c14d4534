// Package profile provides the settings-collaborator client. Profile
// CRUD lives in the settings service; this side only reads.
package profile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopforge/invoicepress/internal/apperr"
	profiledomain "github.com/shopforge/invoicepress/internal/profile/domain"
	"go.uber.org/fx"
)

type envProvider struct{}

// NewEnvProvider reads one business profile from environment variables.
// Sufficient for single-tenant deployments; multi-tenant setups swap in
// a settings-service client.
func NewEnvProvider() profiledomain.Provider {
	return &envProvider{}
}

func (p *envProvider) GetProfile(ctx context.Context, shop string) (*profiledomain.BusinessProfile, error) {
	_ = ctx
	name := strings.TrimSpace(os.Getenv("BUSINESS_NAME"))
	if name == "" {
		return nil, fmt.Errorf("business profile for %s: %w", shop, apperr.ErrNotFound)
	}

	return &profiledomain.BusinessProfile{
		CompanyName:  name,
		GSTIN:        strings.TrimSpace(os.Getenv("BUSINESS_GSTIN")),
		AddressLines: splitLines(os.Getenv("BUSINESS_ADDRESS")),
		StateCode:    strings.ToUpper(strings.TrimSpace(os.Getenv("BUSINESS_STATE"))),
		Email:        strings.TrimSpace(os.Getenv("BUSINESS_EMAIL")),
		Phone:        strings.TrimSpace(os.Getenv("BUSINESS_PHONE")),
		BankName:     strings.TrimSpace(os.Getenv("BUSINESS_BANK_NAME")),
		BankAccount:  strings.TrimSpace(os.Getenv("BUSINESS_BANK_ACCOUNT")),
		BankIFSC:     strings.TrimSpace(os.Getenv("BUSINESS_BANK_IFSC")),
		LogoRef:      strings.TrimSpace(os.Getenv("BUSINESS_LOGO")),
		SignatureRef: strings.TrimSpace(os.Getenv("BUSINESS_SIGNATURE")),
		Terms:        strings.TrimSpace(os.Getenv("BUSINESS_TERMS")),
	}, nil
}

func splitLines(raw string) []string {
	var lines []string
	for _, part := range strings.Split(raw, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

var Module = fx.Module("profile",
	fx.Provide(NewEnvProvider),
)
