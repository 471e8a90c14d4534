// Package money handles rupee amounts as integer paise to keep tax
// arithmetic exact. All persisted and rendered values are two-decimal.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Paise is a rupee amount in minor units (1/100 rupee).
type Paise int64

// FromRupees converts a decimal rupee value, rounding half away from
// zero to the nearest paisa.
func FromRupees(v float64) Paise {
	return Paise(math.Round(v * 100))
}

// Parse converts a decimal string such as "1234.50" into paise.
func Parse(s string) (Paise, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromRupees(v), nil
}

func (p Paise) Rupees() float64 { return float64(p) / 100 }

// String renders the amount with two decimals, e.g. "1234.50".
func (p Paise) String() string {
	neg := p < 0
	v := p
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d.%02d", v/100, v%100)
	if neg {
		return "-" + s
	}
	return s
}

// Display renders the amount with a rupee symbol.
func (p Paise) Display() string {
	return "₹" + p.String()
}

// ApplyRate multiplies by a fractional rate, rounding half away from
// zero to the nearest paisa.
func (p Paise) ApplyRate(rate float64) Paise {
	return Paise(math.Round(float64(p) * rate))
}
