package clickhouse

import (
	"context"
	"fmt"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// InvestmentHistoryStore implements storage.InvestmentHistoryStore using
// ClickHouse. It mirrors accepted receipts for analytics; the MergeTree
// table enforces no uniqueness, so the writer is responsible for feeding
// it each receipt exactly once.
type InvestmentHistoryStore struct {
	conn *Conn
}

// NewInvestmentHistoryStore creates a new InvestmentHistoryStore.
func NewInvestmentHistoryStore(conn *Conn) *InvestmentHistoryStore {
	return &InvestmentHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.InvestmentHistoryStore = (*InvestmentHistoryStore)(nil)

// Insert appends a receipt to the history.
func (s *InvestmentHistoryStore) Insert(ctx context.Context, r *domain.InvestmentReceipt) error {
	if r == nil || r.ReceiptID == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO investments (
			receipt_id, sto_address, investor, token_mint, payment_mint,
			amount_paid, tokens_issued, rate, discounted, tier, timestamp, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		r.ReceiptID, r.StoAddress, r.Investor, r.TokenMint, r.PaymentMint,
		r.AmountPaid, r.TokensIssued, r.Rate, boolToUint8(r.Discounted),
		r.Tier, uint64(r.Timestamp), uint64(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByInvestor retrieves all receipts for an investor, ordered by timestamp ASC.
func (s *InvestmentHistoryStore) GetByInvestor(ctx context.Context, investor string) ([]*domain.InvestmentReceipt, error) {
	query := investmentSelect + `
		WHERE investor = ?
		ORDER BY timestamp ASC, receipt_id ASC
	`

	rows, err := s.conn.Query(ctx, query, investor)
	if err != nil {
		return nil, fmt.Errorf("query by investor: %w", err)
	}
	defer rows.Close()

	return scanInvestments(rows)
}

// GetByTimeRange retrieves receipts for an offering within [start, end] (inclusive).
func (s *InvestmentHistoryStore) GetByTimeRange(ctx context.Context, stoAddress string, start, end int64) ([]*domain.InvestmentReceipt, error) {
	query := investmentSelect + `
		WHERE sto_address = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, receipt_id ASC
	`

	rows, err := s.conn.Query(ctx, query, stoAddress, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanInvestments(rows)
}

// Totals returns the aggregate payment volume and tokens issued for an offering.
func (s *InvestmentHistoryStore) Totals(ctx context.Context, stoAddress string) (amountPaid, tokensIssued int64, err error) {
	query := `
		SELECT sum(amount_paid), sum(tokens_issued)
		FROM investments
		WHERE sto_address = ?
	`

	var paid, issued int64
	if err := s.conn.QueryRow(ctx, query, stoAddress).Scan(&paid, &issued); err != nil {
		return 0, 0, fmt.Errorf("query totals: %w", err)
	}
	return paid, issued, nil
}

const investmentSelect = `
	SELECT receipt_id, sto_address, investor, token_mint, payment_mint,
		amount_paid, tokens_issued, rate, discounted, tier, timestamp, created_at
	FROM investments
`

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanInvestments scans multiple rows into a slice of InvestmentReceipt.
func scanInvestments(rows chRows) ([]*domain.InvestmentReceipt, error) {
	var receipts []*domain.InvestmentReceipt

	for rows.Next() {
		var r domain.InvestmentReceipt
		var discounted uint8
		var timestamp, createdAt uint64

		err := rows.Scan(
			&r.ReceiptID, &r.StoAddress, &r.Investor, &r.TokenMint, &r.PaymentMint,
			&r.AmountPaid, &r.TokensIssued, &r.Rate, &discounted, &r.Tier,
			&timestamp, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan investment row: %w", err)
		}

		r.Discounted = discounted != 0
		r.Timestamp = int64(timestamp)
		r.CreatedAt = int64(createdAt)
		receipts = append(receipts, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investment rows: %w", err)
	}

	return receipts, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
