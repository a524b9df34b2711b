package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// LockStatusStore implements storage.LockStatusStore using PostgreSQL.
// Writes happen only through the Committer in this package.
type LockStatusStore struct {
	pool *Pool
}

// NewLockStatusStore creates a new LockStatusStore.
func NewLockStatusStore(pool *Pool) *LockStatusStore {
	return &LockStatusStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LockStatusStore = (*LockStatusStore)(nil)

// Get retrieves a lock status by derived address. Returns ErrNotFound if not exists.
func (s *LockStatusStore) Get(ctx context.Context, address string) (*domain.LockStatus, error) {
	query := lockStatusSelect + ` WHERE address = $1`

	row := s.pool.QueryRow(ctx, query, address)
	l, err := scanLockStatus(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get lock status: %w", err)
	}
	return l, nil
}

// GetByMint retrieves all lock statuses for a token mint, ordered by first
// investment time ASC.
func (s *LockStatusStore) GetByMint(ctx context.Context, mint string) ([]*domain.LockStatus, error) {
	query := lockStatusSelect + `
		WHERE token_mint = $1
		ORDER BY first_invested_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get lock statuses by mint: %w", err)
	}
	defer rows.Close()

	var locks []*domain.LockStatus
	for rows.Next() {
		l, err := scanLockStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lock status row: %w", err)
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lock status rows: %w", err)
	}
	return locks, nil
}

const lockStatusSelect = `
	SELECT address, bump, investor, token_mint, total_invested, total_tokens,
		investment_count, first_invested_at, last_invested_at, version
	FROM lock_statuses
`

// scanLockStatus scans a single row into a LockStatus.
func scanLockStatus(row pgx.Row) (*domain.LockStatus, error) {
	var l domain.LockStatus
	var bump int16

	err := row.Scan(
		&l.Address,
		&bump,
		&l.Investor,
		&l.TokenMint,
		&l.TotalInvested,
		&l.TotalTokens,
		&l.InvestmentCount,
		&l.FirstInvestedAt,
		&l.LastInvestedAt,
		&l.Version,
	)
	if err != nil {
		return nil, err
	}

	l.Bump = uint8(bump)
	return &l, nil
}
