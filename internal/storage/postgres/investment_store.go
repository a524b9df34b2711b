package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// InvestmentStore implements storage.InvestmentStore using PostgreSQL.
// Receipts are written only through the Committer in this package.
type InvestmentStore struct {
	pool *Pool
}

// NewInvestmentStore creates a new InvestmentStore.
func NewInvestmentStore(pool *Pool) *InvestmentStore {
	return &InvestmentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InvestmentStore = (*InvestmentStore)(nil)

// GetByID retrieves a receipt by its ID. Returns ErrNotFound if not exists.
func (s *InvestmentStore) GetByID(ctx context.Context, receiptID string) (*domain.InvestmentReceipt, error) {
	query := investmentSelect + ` WHERE receipt_id = $1`

	row := s.pool.QueryRow(ctx, query, receiptID)
	r, err := scanInvestment(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get investment by id: %w", err)
	}
	return r, nil
}

// GetByInvestor retrieves all receipts for an investor, ordered by timestamp ASC.
func (s *InvestmentStore) GetByInvestor(ctx context.Context, investor string) ([]*domain.InvestmentReceipt, error) {
	query := investmentSelect + `
		WHERE investor = $1
		ORDER BY timestamp ASC, receipt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, investor)
	if err != nil {
		return nil, fmt.Errorf("get investments by investor: %w", err)
	}
	defer rows.Close()

	return scanInvestments(rows)
}

// GetBySto retrieves all receipts for an offering, ordered by timestamp ASC.
func (s *InvestmentStore) GetBySto(ctx context.Context, stoAddress string) ([]*domain.InvestmentReceipt, error) {
	query := investmentSelect + `
		WHERE sto_address = $1
		ORDER BY timestamp ASC, receipt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, stoAddress)
	if err != nil {
		return nil, fmt.Errorf("get investments by sto: %w", err)
	}
	defer rows.Close()

	return scanInvestments(rows)
}

// GetByTimeRange retrieves receipts for an offering within [start, end]
// inclusive, Unix seconds.
func (s *InvestmentStore) GetByTimeRange(ctx context.Context, stoAddress string, start, end int64) ([]*domain.InvestmentReceipt, error) {
	query := investmentSelect + `
		WHERE sto_address = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, receipt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, stoAddress, start, end)
	if err != nil {
		return nil, fmt.Errorf("get investments by time range: %w", err)
	}
	defer rows.Close()

	return scanInvestments(rows)
}

// Totals returns the aggregate payment volume and tokens issued for an
// offering.
func (s *InvestmentStore) Totals(ctx context.Context, stoAddress string) (int64, int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_paid), 0), COALESCE(SUM(tokens_issued), 0)
		FROM investments
		WHERE sto_address = $1
	`

	var amountPaid, tokensIssued int64
	if err := s.pool.QueryRow(ctx, query, stoAddress).Scan(&amountPaid, &tokensIssued); err != nil {
		return 0, 0, fmt.Errorf("get investment totals: %w", err)
	}
	return amountPaid, tokensIssued, nil
}

const investmentSelect = `
	SELECT receipt_id, sto_address, investor, token_mint, payment_mint,
		amount_paid, tokens_issued, rate, discounted, tier, timestamp, created_at
	FROM investments
`

// scanInvestment scans a single row into an InvestmentReceipt.
func scanInvestment(row pgx.Row) (*domain.InvestmentReceipt, error) {
	var r domain.InvestmentReceipt
	var tier int16

	err := row.Scan(
		&r.ReceiptID,
		&r.StoAddress,
		&r.Investor,
		&r.TokenMint,
		&r.PaymentMint,
		&r.AmountPaid,
		&r.TokensIssued,
		&r.Rate,
		&r.Discounted,
		&tier,
		&r.Timestamp,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Tier = uint8(tier)
	return &r, nil
}

// scanInvestments scans multiple rows into a slice of InvestmentReceipt.
func scanInvestments(rows pgx.Rows) ([]*domain.InvestmentReceipt, error) {
	var receipts []*domain.InvestmentReceipt

	for rows.Next() {
		r, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment row: %w", err)
		}
		receipts = append(receipts, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investment rows: %w", err)
	}

	return receipts, nil
}
