package postgres

import (
	"context"
	"fmt"

	"estate-sto/internal/ledger"
)

// LedgerStore implements ledger.Ledger using the token_balances table.
// Each (account, mint) pair holds one non-negative balance row.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ ledger.Ledger = (*LedgerStore)(nil)

// Transfer atomically moves amount of mint between accounts.
func (s *LedgerStore) Transfer(ctx context.Context, from, to, mint string, amount int64) error {
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := debitBalance(ctx, tx, from, mint, amount); err != nil {
		return err
	}
	if err := creditBalance(ctx, tx, to, mint, amount); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer tx: %w", err)
	}
	return nil
}

// MintTo credits newly issued tokens to the destination account.
func (s *LedgerStore) MintTo(ctx context.Context, mint, dest string, amount int64) error {
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}
	return creditBalance(ctx, s.pool, dest, mint, amount)
}

// BalanceOf returns the balance of an account for a mint. Missing rows
// read as zero.
func (s *LedgerStore) BalanceOf(ctx context.Context, account, mint string) (int64, error) {
	query := `
		SELECT COALESCE(
			(SELECT amount FROM token_balances WHERE account = $1 AND mint = $2),
			0
		)
	`

	var amount int64
	if err := s.pool.QueryRow(ctx, query, account, mint).Scan(&amount); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return amount, nil
}

// debitBalance subtracts amount from an (account, mint) balance. The
// amount >= guard in the WHERE clause makes overdrafts impossible; zero
// rows affected means the balance (or the row itself) was too small.
func debitBalance(ctx context.Context, q execer, account, mint string, amount int64) error {
	query := `
		UPDATE token_balances
		SET amount = amount - $1
		WHERE account = $2 AND mint = $3 AND amount >= $1
	`

	tag, err := q.Exec(ctx, query, amount, account, mint)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientFunds
	}
	return nil
}

// creditBalance adds amount to an (account, mint) balance, creating the
// row on first credit.
func creditBalance(ctx context.Context, q execer, account, mint string, amount int64) error {
	query := `
		INSERT INTO token_balances (account, mint, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (account, mint)
		DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount
	`

	if _, err := q.Exec(ctx, query, account, mint, amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}
