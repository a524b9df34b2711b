package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// StoConfigStore implements storage.StoConfigStore using PostgreSQL.
// The tier table is stored as a JSONB column: tiers are always read and
// written as a unit together with the offering counters.
type StoConfigStore struct {
	pool *Pool
}

// NewStoConfigStore creates a new StoConfigStore.
func NewStoConfigStore(pool *Pool) *StoConfigStore {
	return &StoConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StoConfigStore = (*StoConfigStore)(nil)

// tierRecord is the JSONB wire form of a pricing tier.
type tierRecord struct {
	Rate                 int64 `json:"rate"`
	RateDiscounted       int64 `json:"rate_discounted"`
	TotalTokens          int64 `json:"total_tokens"`
	TokensDiscounted     int64 `json:"tokens_discounted"`
	MinInvestment        int64 `json:"min_investment"`
	MaxInvestment        int64 `json:"max_investment"`
	TokensSold           int64 `json:"tokens_sold"`
	TokensSoldDiscounted int64 `json:"tokens_sold_discounted"`
}

func marshalTiers(tiers []domain.Tier) ([]byte, error) {
	records := make([]tierRecord, len(tiers))
	for i, t := range tiers {
		records[i] = tierRecord{
			Rate:                 t.Rate,
			RateDiscounted:       t.RateDiscounted,
			TotalTokens:          t.TotalTokens,
			TokensDiscounted:     t.TokensDiscounted,
			MinInvestment:        t.MinInvestment,
			MaxInvestment:        t.MaxInvestment,
			TokensSold:           t.TokensSold,
			TokensSoldDiscounted: t.TokensSoldDiscounted,
		}
	}
	return json.Marshal(records)
}

func unmarshalTiers(data []byte) ([]domain.Tier, error) {
	var records []tierRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	tiers := make([]domain.Tier, len(records))
	for i, r := range records {
		tiers[i] = domain.Tier{
			TierParams: domain.TierParams{
				Rate:             r.Rate,
				RateDiscounted:   r.RateDiscounted,
				TotalTokens:      r.TotalTokens,
				TokensDiscounted: r.TokensDiscounted,
				MinInvestment:    r.MinInvestment,
				MaxInvestment:    r.MaxInvestment,
			},
			TokensSold:           r.TokensSold,
			TokensSoldDiscounted: r.TokensSoldDiscounted,
		}
	}
	return tiers, nil
}

// Insert adds a new offering config. Returns ErrDuplicateKey if the address
// or token mint already exists.
func (s *StoConfigStore) Insert(ctx context.Context, cfg *domain.StoConfig) error {
	if cfg == nil || cfg.Address == "" {
		return storage.ErrInvalidInput
	}

	tiersJSON, err := marshalTiers(cfg.Tiers)
	if err != nil {
		return fmt.Errorf("marshal tiers: %w", err)
	}

	query := `
		INSERT INTO sto_configs (
			address, bump, authority, token_mint, treasury_wallet,
			payment_mints, payment_enabled, payment_decimals,
			tiers, num_tiers, max_tiers, current_tier,
			start_time, end_time, whitelist_required, status,
			total_sold, investor_count, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err = s.pool.Exec(ctx, query,
		cfg.Address,
		int16(cfg.Bump),
		cfg.Authority,
		cfg.TokenMint,
		cfg.TreasuryWallet,
		cfg.PaymentMints[:],
		cfg.PaymentEnabled[:],
		int16(cfg.PaymentDecimals),
		tiersJSON,
		int16(cfg.NumTiers),
		int16(cfg.MaxTiers),
		int16(cfg.CurrentTier),
		cfg.StartTime,
		cfg.EndTime,
		cfg.WhitelistRequired,
		string(cfg.Status),
		cfg.TotalSold,
		cfg.InvestorCount,
		cfg.Version,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sto config: %w", err)
	}
	return nil
}

// Get retrieves an offering by derived address. Returns ErrNotFound if not exists.
func (s *StoConfigStore) Get(ctx context.Context, address string) (*domain.StoConfig, error) {
	query := stoConfigSelect + ` WHERE address = $1`

	row := s.pool.QueryRow(ctx, query, address)
	cfg, err := scanStoConfig(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sto config: %w", err)
	}
	return cfg, nil
}

// Update replaces the stored record if its version still equals expectedVersion.
// Returns ErrVersionConflict when another writer got there first.
func (s *StoConfigStore) Update(ctx context.Context, cfg *domain.StoConfig, expectedVersion int64) error {
	err := updateStoConfig(ctx, s.pool, cfg, expectedVersion)
	if err == storage.ErrVersionConflict {
		// Distinguish a missing row from a stale version.
		var exists bool
		if qErr := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sto_configs WHERE address = $1)`, cfg.Address).Scan(&exists); qErr != nil {
			return fmt.Errorf("check sto config exists: %w", qErr)
		}
		if !exists {
			return storage.ErrNotFound
		}
	}
	return err
}

// execer covers both the pool and pgx.Tx so the committer can reuse the
// same CAS update inside its transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func updateStoConfig(ctx context.Context, q execer, cfg *domain.StoConfig, expectedVersion int64) error {
	if cfg == nil || cfg.Address == "" {
		return storage.ErrInvalidInput
	}

	tiersJSON, err := marshalTiers(cfg.Tiers)
	if err != nil {
		return fmt.Errorf("marshal tiers: %w", err)
	}

	query := `
		UPDATE sto_configs
		SET payment_mints = $1, payment_enabled = $2, tiers = $3,
			current_tier = $4, start_time = $5, end_time = $6,
			whitelist_required = $7, status = $8, total_sold = $9,
			investor_count = $10, version = $11, updated_at = $12
		WHERE address = $13 AND version = $14
	`

	tag, err := q.Exec(ctx, query,
		cfg.PaymentMints[:],
		cfg.PaymentEnabled[:],
		tiersJSON,
		int16(cfg.CurrentTier),
		cfg.StartTime,
		cfg.EndTime,
		cfg.WhitelistRequired,
		string(cfg.Status),
		cfg.TotalSold,
		cfg.InvestorCount,
		expectedVersion+1,
		cfg.UpdatedAt,
		cfg.Address,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update sto config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

const stoConfigSelect = `
	SELECT address, bump, authority, token_mint, treasury_wallet,
		payment_mints, payment_enabled, payment_decimals,
		tiers, num_tiers, max_tiers, current_tier,
		start_time, end_time, whitelist_required, status,
		total_sold, investor_count, version, created_at, updated_at
	FROM sto_configs
`

// scanStoConfig scans a single row into a StoConfig.
func scanStoConfig(row pgx.Row) (*domain.StoConfig, error) {
	var cfg domain.StoConfig
	var bump, paymentDecimals, numTiers, maxTiers, currentTier int16
	var paymentMints []string
	var paymentEnabled []bool
	var tiersJSON []byte
	var statusStr string

	err := row.Scan(
		&cfg.Address,
		&bump,
		&cfg.Authority,
		&cfg.TokenMint,
		&cfg.TreasuryWallet,
		&paymentMints,
		&paymentEnabled,
		&paymentDecimals,
		&tiersJSON,
		&numTiers,
		&maxTiers,
		&currentTier,
		&cfg.StartTime,
		&cfg.EndTime,
		&cfg.WhitelistRequired,
		&statusStr,
		&cfg.TotalSold,
		&cfg.InvestorCount,
		&cfg.Version,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	copy(cfg.PaymentMints[:], paymentMints)
	copy(cfg.PaymentEnabled[:], paymentEnabled)
	cfg.Bump = uint8(bump)
	cfg.PaymentDecimals = uint8(paymentDecimals)
	cfg.NumTiers = uint8(numTiers)
	cfg.MaxTiers = uint8(maxTiers)
	cfg.CurrentTier = uint8(currentTier)
	cfg.Status = domain.Status(statusStr)

	cfg.Tiers, err = unmarshalTiers(tiersJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshal tiers: %w", err)
	}
	return &cfg, nil
}
