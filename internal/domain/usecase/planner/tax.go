package planner

import (
	"fmt"

	"github.com/shopspring/decimal"

	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// RoundingMode selects how fractional tax amounts are resolved to integer
// minor currency units.
type RoundingMode string

// Rounding modes
const (
	// RoundHalfEven rounds ties to the nearest even integer (banker's rounding).
	RoundHalfEven RoundingMode = "HALF_EVEN"
	// RoundHalfUp rounds ties away from zero.
	RoundHalfUp RoundingMode = "HALF_UP"
)

// DefaultRoundingMode applies when the request doesn't name one.
const DefaultRoundingMode = RoundHalfEven

// ValidateRoundingMode rejects unknown modes before planning starts.
func ValidateRoundingMode(mode RoundingMode) error {
	switch mode {
	case RoundHalfEven, RoundHalfUp, "":
		return nil
	default:
		return fmt.Errorf("%w: unknown tax rounding mode %q", errs.ErrInvalidValueState, mode)
	}
}

// calculateTax computes the tax on a taxable amount at the line item's rate,
// rounded per the requested mode. Tax is computed per line item on the
// post-pretax-discount taxable amount; post-tax discounts never change it.
func calculateTax(taxable int64, taxRate float64, mode RoundingMode) int64 {
	if taxable <= 0 || taxRate <= 0 {
		return 0
	}
	tax := decimal.NewFromInt(taxable).Mul(decimal.NewFromFloat(taxRate))
	switch mode {
	case RoundHalfUp:
		return tax.Round(0).IntPart()
	default:
		return tax.RoundBank(0).IntPart()
	}
}
