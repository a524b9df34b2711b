package domain

import "errors"

// TierParams define a single pricing tier of an offering. All amounts are
// integers in base units: rates in payment-token units per whole security
// token, inventories in security-token base units, investment bounds in
// payment-token base units.
type TierParams struct {
	Rate             int64 // payment units per token, > 0
	RateDiscounted   int64 // <= Rate, > 0
	TotalTokens      int64 // tier inventory cap
	TokensDiscounted int64 // sub-allocation of TotalTokens sold at RateDiscounted
	MinInvestment    int64
	MaxInvestment    int64
}

// Validate checks the tier invariants.
func (p TierParams) Validate() error {
	switch {
	case p.Rate <= 0:
		return errors.New("rate must be positive")
	case p.RateDiscounted <= 0:
		return errors.New("discounted rate must be positive")
	case p.RateDiscounted > p.Rate:
		return errors.New("discounted rate exceeds standard rate")
	case p.TotalTokens <= 0:
		return errors.New("total tokens must be positive")
	case p.TokensDiscounted < 0 || p.TokensDiscounted > p.TotalTokens:
		return errors.New("discounted allocation exceeds total tokens")
	case p.MinInvestment < 0:
		return errors.New("min investment must not be negative")
	case p.MinInvestment > p.MaxInvestment:
		return errors.New("min investment exceeds max investment")
	}
	return nil
}

// Tier is a pricing tier with its runtime sale counters.
type Tier struct {
	TierParams
	TokensSold           int64 // sold from the standard allocation
	TokensSoldDiscounted int64 // sold from the discounted allocation
}

// StandardRemaining returns the unsold standard inventory.
func (t *Tier) StandardRemaining() int64 {
	return (t.TotalTokens - t.TokensDiscounted) - t.TokensSold
}

// DiscountedRemaining returns the unsold discounted inventory.
func (t *Tier) DiscountedRemaining() int64 {
	return t.TokensDiscounted - t.TokensSoldDiscounted
}

// Exhausted reports whether the tier's combined inventory is sold out.
func (t *Tier) Exhausted() bool {
	return t.StandardRemaining() == 0 && t.DiscountedRemaining() == 0
}
