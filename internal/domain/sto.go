package domain

// Offering capacity limits.
const (
	// MaxTiers is the maximum number of pricing tiers per offering.
	MaxTiers = 5

	// NumPaymentMints is the number of stablecoin payment slots.
	// PaymentEnabled carries one extra reserved slot that is always disabled.
	NumPaymentMints = 2
)

// DefaultPaymentDecimals matches 6-decimal stablecoins (USDC, USDT).
const DefaultPaymentDecimals = 6

// StoConfig is the state of a security token offering.
// Corresponds to the sto_configs table in PostgreSQL. Exactly one StoConfig
// exists per token mint; its Address is derived from ("sto_config", mint).
type StoConfig struct {
	Address           string
	Bump              uint8
	Authority         string
	TokenMint         string // back-reference to TokenConfig.Mint
	TreasuryWallet    string
	PaymentMints      [NumPaymentMints]string
	PaymentEnabled    [NumPaymentMints + 1]bool // last slot reserved, never enabled
	PaymentDecimals   uint8
	Tiers             []Tier // length NumTiers, at most MaxTiers
	NumTiers          uint8
	MaxTiers          uint8
	CurrentTier       uint8 // index into Tiers, monotonically non-decreasing
	StartTime         int64 // Unix seconds
	EndTime           int64
	WhitelistRequired bool
	Status            Status
	TotalSold         int64 // security-token base units issued so far
	InvestorCount     int64
	Version           int64
	CreatedAt         int64
	UpdatedAt         int64
}

// StoParams are the caller-supplied inputs for creating an offering.
type StoParams struct {
	Authority         string
	TokenMint         string
	TreasuryWallet    string
	PaymentMints      [NumPaymentMints]string
	PaymentEnabled    [NumPaymentMints + 1]bool
	PaymentDecimals   uint8
	Tiers             []TierParams
	NumTiers          uint8
	StartTime         int64
	EndTime           int64
	WhitelistRequired bool
}

// PaymentAccepted reports whether the given mint is an enabled payment method.
func (s *StoConfig) PaymentAccepted(mint string) bool {
	if mint == "" {
		return false
	}
	for i := 0; i < NumPaymentMints; i++ {
		if s.PaymentMints[i] == mint && s.PaymentEnabled[i] {
			return true
		}
	}
	return false
}

// InWindow reports whether now falls within [StartTime, EndTime].
func (s *StoConfig) InWindow(now int64) bool {
	return now >= s.StartTime && now <= s.EndTime
}

// SoldOut reports whether every tier's inventory is exhausted.
func (s *StoConfig) SoldOut() bool {
	for i := range s.Tiers {
		if !s.Tiers[i].Exhausted() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. Investment processing computes the next state
// on a copy and commits it with a compare-and-swap on Version.
func (s *StoConfig) Clone() *StoConfig {
	c := *s
	c.Tiers = make([]Tier, len(s.Tiers))
	copy(c.Tiers, s.Tiers)
	return &c
}
