package service

import "strings"

// HSN classification codes for the product categories the store sells.
// These are REPORTING CONSTANTS; do not repurpose once used on invoices.
const (
	HSNBlend     = "6006"
	HSNCotton    = "5208"
	HSNPolyester = "5407"
	HSNDefault   = "6109"
)

// ResolveHSN picks the classification code for a line item. An explicit
// code wins verbatim; otherwise the product hint is matched in priority
// order blend > cotton > polyester. Nothing matching falls back to the
// configured code, or HSNDefault when none is configured.
// Pure and deterministic.
func ResolveHSN(explicit, hint, fallback string) string {
	if code := strings.TrimSpace(explicit); code != "" {
		return code
	}

	normalized := strings.ToLower(hint)
	switch {
	case strings.Contains(normalized, "blend"), strings.Contains(normalized, "mixed"):
		return HSNBlend
	case strings.Contains(normalized, "cotton"):
		return HSNCotton
	case strings.Contains(normalized, "polyester"):
		return HSNPolyester
	}

	if code := strings.TrimSpace(fallback); code != "" {
		return code
	}
	return HSNDefault
}
