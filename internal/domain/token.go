package domain

// Token decimal conventions. A divisible security token uses 9 decimals
// like the underlying chain's native token standard; an indivisible one
// trades in whole units only.
const (
	DecimalsDivisible   = 9
	DecimalsIndivisible = 0
)

// TokenConfig describes an issued security token.
// Corresponds to the token_configs table in PostgreSQL.
type TokenConfig struct {
	Address        string // PRIMARY KEY, derived from ("token_config", mint)
	Bump           uint8  // derivation bump for Address
	Authority      string // owner identity, immutable after creation
	Mint           string // unique asset identifier, immutable
	Name           string
	Symbol         string
	Details        string // off-chain details URI
	Decimals       uint8  // fixed at creation: 9 if divisible, else 0
	DocumentHash   string // content-addressed legal document hash
	TreasuryWallet string
	Status         Status
	Version        int64 // optimistic concurrency version
	CreatedAt      int64 // Unix timestamp in seconds
	UpdatedAt      int64
}

// TokenParams are the caller-supplied inputs for creating a security token.
type TokenParams struct {
	Authority      string
	Mint           string
	Name           string
	Symbol         string
	Details        string
	Divisible      bool
	TreasuryWallet string
	DocumentHash   string
}

// DecimalsFor maps the divisible flag to a fixed decimal count.
func DecimalsFor(divisible bool) uint8 {
	if divisible {
		return DecimalsDivisible
	}
	return DecimalsIndivisible
}
