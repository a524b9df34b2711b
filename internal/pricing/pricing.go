// Package pricing holds the pure tier allocation math. No external effects;
// the investment processor applies the results under its commit discipline.
package pricing

import (
	"errors"
	"math"
	"math/bits"

	"estate-sto/internal/domain"
)

// Pricing errors.
var (
	// ErrInsufficientInventory is returned when the computed token quantity
	// exceeds the remaining inventory of the addressed pool.
	ErrInsufficientInventory = errors.New("insufficient tier inventory")

	// ErrAmountOverflow is returned when amount*scale does not fit the
	// 128/64-bit division used for conversion.
	ErrAmountOverflow = errors.New("payment amount too large")

	// ErrInvalidTierIndex is returned for an out-of-range tier index.
	ErrInvalidTierIndex = errors.New("invalid tier index")
)

// Scale returns the base-unit multiplier for a decimal count.
func Scale(decimals uint8) int64 {
	s := int64(1)
	for i := uint8(0); i < decimals; i++ {
		s *= 10
	}
	return s
}

// TokensFor converts a payment amount into a token quantity at the given
// rate: floor(amount * scale / rate). Truncation, never rounding up, so
// inventory is never over-allocated; the sub-unit remainder stays with the
// payer.
func TokensFor(amount, rate, scale int64) (int64, error) {
	if amount < 0 || rate <= 0 || scale <= 0 {
		return 0, ErrAmountOverflow
	}

	hi, lo := bits.Mul64(uint64(amount), uint64(scale))
	if hi >= uint64(rate) {
		// Quotient would not fit in 64 bits.
		return 0, ErrAmountOverflow
	}
	quo, _ := bits.Div64(hi, lo, uint64(rate))
	if quo > math.MaxInt64 {
		return 0, ErrAmountOverflow
	}
	return int64(quo), nil
}

// Quote is the result of pricing an investment against a tier.
type Quote struct {
	TokensOut  int64
	Rate       int64 // rate actually applied
	Discounted bool  // filled from the discounted allocation
}

// PriceFor prices a payment amount against a tier. The discounted rate is
// used when useDiscount is set and the tier still has discounted inventory;
// otherwise the standard rate applies. Returns ErrInsufficientInventory if
// the computed quantity exceeds the remaining inventory of the chosen pool.
func PriceFor(t *domain.Tier, amount int64, scale int64, useDiscount bool) (Quote, error) {
	if useDiscount && t.DiscountedRemaining() > 0 {
		tokens, err := TokensFor(amount, t.RateDiscounted, scale)
		if err != nil {
			return Quote{}, err
		}
		if tokens > t.DiscountedRemaining() {
			return Quote{}, ErrInsufficientInventory
		}
		return Quote{TokensOut: tokens, Rate: t.RateDiscounted, Discounted: true}, nil
	}

	tokens, err := TokensFor(amount, t.Rate, scale)
	if err != nil {
		return Quote{}, err
	}
	if tokens > t.StandardRemaining() {
		return Quote{}, ErrInsufficientInventory
	}
	return Quote{TokensOut: tokens, Rate: t.Rate, Discounted: false}, nil
}

// Remaining returns the unsold (standard, discounted) inventory of a tier
// in the offering. Pure read.
func Remaining(s *domain.StoConfig, tierIndex int) (standard, discounted int64, err error) {
	if tierIndex < 0 || tierIndex >= len(s.Tiers) {
		return 0, 0, ErrInvalidTierIndex
	}
	t := &s.Tiers[tierIndex]
	return t.StandardRemaining(), t.DiscountedRemaining(), nil
}

// NextTierWithInventory returns the first tier index at or after from with
// unsold inventory, or -1 when the offering is sold out. currentTier only
// ever advances, so the scan never looks behind from.
func NextTierWithInventory(s *domain.StoConfig, from int) int {
	for i := from; i < len(s.Tiers); i++ {
		if !s.Tiers[i].Exhausted() {
			return i
		}
	}
	return -1
}
