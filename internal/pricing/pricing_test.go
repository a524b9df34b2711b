package pricing

import (
	"errors"
	"math"
	"testing"

	"estate-sto/internal/domain"
)

func baseTier() domain.Tier {
	return domain.Tier{
		TierParams: domain.TierParams{
			Rate:             1_000_000,
			RateDiscounted:   900_000,
			TotalTokens:      1_000_000_000_000,
			TokensDiscounted: 100_000_000_000,
			MinInvestment:    100_000_000,
			MaxInvestment:    100_000_000_000,
		},
	}
}

func TestTokensFor_ExactDivision(t *testing.T) {
	// 100 USDC at rate 1 USDC/token with 6-decimal payment units:
	// 100_000_000 * 1_000_000 / 1_000_000 = 100_000_000
	got, err := TokensFor(100_000_000, 1_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("TokensFor failed: %v", err)
	}
	if got != 100_000_000 {
		t.Errorf("TokensFor = %d, want 100_000_000", got)
	}
}

func TestTokensFor_FloorsRemainder(t *testing.T) {
	// 1 unit short of two whole conversions: must truncate, never round up.
	got, err := TokensFor(5, 3, 1)
	if err != nil {
		t.Fatalf("TokensFor failed: %v", err)
	}
	if got != 1 {
		t.Errorf("TokensFor = %d, want 1 (floor of 5/3)", got)
	}
}

func TestTokensFor_Overflow(t *testing.T) {
	_, err := TokensFor(math.MaxInt64, 1, 1_000_000)
	if !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("Expected ErrAmountOverflow, got %v", err)
	}
}

func TestTokensFor_Large128BitIntermediate(t *testing.T) {
	// amount*scale exceeds 64 bits but the quotient fits.
	amount := int64(4_000_000_000_000)
	scale := int64(1_000_000_000)
	rate := int64(1_000_000)

	got, err := TokensFor(amount, rate, scale)
	if err != nil {
		t.Fatalf("TokensFor failed: %v", err)
	}
	want := int64(4_000_000_000_000_000)
	if got != want {
		t.Errorf("TokensFor = %d, want %d", got, want)
	}
}

func TestTokensFor_InvalidInputs(t *testing.T) {
	cases := []struct {
		name                string
		amount, rate, scale int64
	}{
		{"negative amount", -1, 1, 1},
		{"zero rate", 1, 0, 1},
		{"zero scale", 1, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := TokensFor(tc.amount, tc.rate, tc.scale); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPriceFor_StandardRate(t *testing.T) {
	tier := baseTier()

	q, err := PriceFor(&tier, 100_000_000, 1_000_000, false)
	if err != nil {
		t.Fatalf("PriceFor failed: %v", err)
	}
	if q.TokensOut != 100_000_000 {
		t.Errorf("TokensOut = %d, want 100_000_000", q.TokensOut)
	}
	if q.Rate != 1_000_000 {
		t.Errorf("Rate = %d, want 1_000_000", q.Rate)
	}
	if q.Discounted {
		t.Error("Discounted = true, want false")
	}
}

func TestPriceFor_DiscountedRate(t *testing.T) {
	tier := baseTier()

	q, err := PriceFor(&tier, 90_000_000, 1_000_000, true)
	if err != nil {
		t.Fatalf("PriceFor failed: %v", err)
	}
	// 90_000_000 * 1_000_000 / 900_000 = 100_000_000
	if q.TokensOut != 100_000_000 {
		t.Errorf("TokensOut = %d, want 100_000_000", q.TokensOut)
	}
	if q.Rate != 900_000 {
		t.Errorf("Rate = %d, want 900_000", q.Rate)
	}
	if !q.Discounted {
		t.Error("Discounted = false, want true")
	}
}

func TestPriceFor_DiscountPoolEmptyFallsBackToStandard(t *testing.T) {
	tier := baseTier()
	tier.TokensSoldDiscounted = tier.TokensDiscounted // discounted pool drained

	q, err := PriceFor(&tier, 100_000_000, 1_000_000, true)
	if err != nil {
		t.Fatalf("PriceFor failed: %v", err)
	}
	if q.Discounted {
		t.Error("expected standard fill when discounted pool is empty")
	}
	if q.Rate != tier.Rate {
		t.Errorf("Rate = %d, want standard rate %d", q.Rate, tier.Rate)
	}
}

func TestPriceFor_InsufficientInventory(t *testing.T) {
	tier := baseTier()
	tier.TokensSold = tier.TotalTokens - tier.TokensDiscounted - 1 // one base unit left

	_, err := PriceFor(&tier, 100_000_000, 1_000_000, false)
	if !errors.Is(err, ErrInsufficientInventory) {
		t.Errorf("Expected ErrInsufficientInventory, got %v", err)
	}
}

func TestPriceFor_InsufficientDiscountedInventory(t *testing.T) {
	tier := baseTier()
	tier.TokensSoldDiscounted = tier.TokensDiscounted - 1 // one discounted unit left

	_, err := PriceFor(&tier, 90_000_000, 1_000_000, true)
	if !errors.Is(err, ErrInsufficientInventory) {
		t.Errorf("Expected ErrInsufficientInventory, got %v", err)
	}
}

func TestRemaining(t *testing.T) {
	sto := &domain.StoConfig{Tiers: []domain.Tier{baseTier()}}
	sto.Tiers[0].TokensSold = 300_000_000_000
	sto.Tiers[0].TokensSoldDiscounted = 40_000_000_000

	std, disc, err := Remaining(sto, 0)
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if std != 600_000_000_000 {
		t.Errorf("standard remaining = %d, want 600_000_000_000", std)
	}
	if disc != 60_000_000_000 {
		t.Errorf("discounted remaining = %d, want 60_000_000_000", disc)
	}

	if _, _, err := Remaining(sto, 1); !errors.Is(err, ErrInvalidTierIndex) {
		t.Errorf("Expected ErrInvalidTierIndex, got %v", err)
	}
}

func TestNextTierWithInventory(t *testing.T) {
	exhausted := baseTier()
	exhausted.TokensSold = exhausted.TotalTokens - exhausted.TokensDiscounted
	exhausted.TokensSoldDiscounted = exhausted.TokensDiscounted

	sto := &domain.StoConfig{Tiers: []domain.Tier{exhausted, baseTier()}}

	if got := NextTierWithInventory(sto, 0); got != 1 {
		t.Errorf("NextTierWithInventory = %d, want 1", got)
	}

	sto.Tiers[1] = exhausted
	if got := NextTierWithInventory(sto, 0); got != -1 {
		t.Errorf("NextTierWithInventory = %d, want -1 when sold out", got)
	}
}

func TestScale(t *testing.T) {
	if got := Scale(6); got != 1_000_000 {
		t.Errorf("Scale(6) = %d, want 1_000_000", got)
	}
	if got := Scale(0); got != 1 {
		t.Errorf("Scale(0) = %d, want 1", got)
	}
	if got := Scale(9); got != 1_000_000_000 {
		t.Errorf("Scale(9) = %d, want 1_000_000_000", got)
	}
}
