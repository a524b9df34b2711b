package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// TokenConfigStore implements storage.TokenConfigStore using PostgreSQL.
type TokenConfigStore struct {
	pool *Pool
}

// NewTokenConfigStore creates a new TokenConfigStore.
func NewTokenConfigStore(pool *Pool) *TokenConfigStore {
	return &TokenConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenConfigStore = (*TokenConfigStore)(nil)

// Insert adds a new token config. Returns ErrDuplicateKey if the address
// or mint already exists.
func (s *TokenConfigStore) Insert(ctx context.Context, c *domain.TokenConfig) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_configs (
			address, bump, authority, mint, name, symbol, details, decimals,
			document_hash, treasury_wallet, status, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		c.Address,
		int16(c.Bump),
		c.Authority,
		c.Mint,
		c.Name,
		c.Symbol,
		c.Details,
		int16(c.Decimals),
		c.DocumentHash,
		c.TreasuryWallet,
		string(c.Status),
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token config: %w", err)
	}
	return nil
}

// Get retrieves a token config by derived address. Returns ErrNotFound if not exists.
func (s *TokenConfigStore) Get(ctx context.Context, address string) (*domain.TokenConfig, error) {
	query := tokenConfigSelect + ` WHERE address = $1`

	row := s.pool.QueryRow(ctx, query, address)
	c, err := scanTokenConfig(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token config: %w", err)
	}
	return c, nil
}

// Update replaces the stored record if its version still equals expectedVersion.
// Returns ErrVersionConflict when another writer got there first.
func (s *TokenConfigStore) Update(ctx context.Context, c *domain.TokenConfig, expectedVersion int64) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE token_configs
		SET name = $1, symbol = $2, details = $3, document_hash = $4,
			treasury_wallet = $5, status = $6, version = $7, updated_at = $8
		WHERE address = $9 AND version = $10
	`

	tag, err := s.pool.Exec(ctx, query,
		c.Name,
		c.Symbol,
		c.Details,
		c.DocumentHash,
		c.TreasuryWallet,
		string(c.Status),
		expectedVersion+1,
		c.UpdatedAt,
		c.Address,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update token config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a stale version.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM token_configs WHERE address = $1)`, c.Address).Scan(&exists); err != nil {
			return fmt.Errorf("check token config exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}
	return nil
}

const tokenConfigSelect = `
	SELECT address, bump, authority, mint, name, symbol, details, decimals,
		document_hash, treasury_wallet, status, version, created_at, updated_at
	FROM token_configs
`

// scanTokenConfig scans a single row into a TokenConfig.
func scanTokenConfig(row pgx.Row) (*domain.TokenConfig, error) {
	var c domain.TokenConfig
	var bump, decimals int16
	var statusStr string

	err := row.Scan(
		&c.Address,
		&bump,
		&c.Authority,
		&c.Mint,
		&c.Name,
		&c.Symbol,
		&c.Details,
		&decimals,
		&c.DocumentHash,
		&c.TreasuryWallet,
		&statusStr,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Bump = uint8(bump)
	c.Decimals = uint8(decimals)
	c.Status = domain.Status(statusStr)
	return &c, nil
}
