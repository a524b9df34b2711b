package postgres

import (
	"context"
	"fmt"

	"estate-sto/internal/domain"
	"estate-sto/internal/ledger"
	"estate-sto/internal/storage"
)

// Committer implements storage.InvestmentCommitter using a single
// PostgreSQL transaction. Every effect of an investment lands atomically:
// the payment debit and treasury credit, the minted token credit, the
// offering counter CAS, the lock status upsert and the receipt row.
type Committer struct {
	pool *Pool
}

// NewCommitter creates a committer over the given pool.
func NewCommitter(pool *Pool) *Committer {
	return &Committer{pool: pool}
}

// Compile-time interface check.
var _ storage.InvestmentCommitter = (*Committer)(nil)

// CommitInvestment applies every effect of the commit or none of them.
// Returns ErrVersionConflict when the offering or lock snapshot is stale
// and ledger.ErrInsufficientFunds when the investor cannot cover the payment.
func (c *Committer) CommitInvestment(ctx context.Context, commit *domain.InvestmentCommit) error {
	if commit == nil || commit.Sto == nil || commit.Lock == nil || commit.Receipt == nil {
		return storage.ErrInvalidInput
	}
	if commit.Payment.Amount <= 0 || commit.Issue.Amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Offering counter CAS. A concurrent lifecycle transition or competing
	// investment moved the version and aborts the whole transaction.
	if err := updateStoConfig(ctx, tx, commit.Sto, commit.StoVersion); err != nil {
		return err
	}

	// Lock status: first investment creates the row, later ones CAS on
	// the version carried in the commit.
	if commit.LockVersion == 0 {
		if err := insertLockStatus(ctx, tx, commit.Lock); err != nil {
			return err
		}
	} else {
		if err := updateLockStatus(ctx, tx, commit.Lock, commit.LockVersion); err != nil {
			return err
		}
	}

	// Move the payment and issue the tokens.
	if err := debitBalance(ctx, tx, commit.Payment.From, commit.Payment.Mint, commit.Payment.Amount); err != nil {
		return err
	}
	if err := creditBalance(ctx, tx, commit.Payment.To, commit.Payment.Mint, commit.Payment.Amount); err != nil {
		return err
	}
	if err := creditBalance(ctx, tx, commit.Issue.Dest, commit.Issue.Mint, commit.Issue.Amount); err != nil {
		return err
	}

	if err := insertReceipt(ctx, tx, commit.Receipt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit investment tx: %w", err)
	}
	return nil
}

// insertLockStatus creates the investor's lock row at version 1. A
// duplicate here means a concurrent first investment won the race.
func insertLockStatus(ctx context.Context, q execer, l *domain.LockStatus) error {
	query := `
		INSERT INTO lock_statuses (
			address, bump, investor, token_mint, total_invested, total_tokens,
			investment_count, first_invested_at, last_invested_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
	`

	_, err := q.Exec(ctx, query,
		l.Address,
		int16(l.Bump),
		l.Investor,
		l.TokenMint,
		l.TotalInvested,
		l.TotalTokens,
		l.InvestmentCount,
		l.FirstInvestedAt,
		l.LastInvestedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrVersionConflict
		}
		return fmt.Errorf("insert lock status: %w", err)
	}
	return nil
}

// updateLockStatus replaces the lock row if its version still equals
// expectedVersion.
func updateLockStatus(ctx context.Context, q execer, l *domain.LockStatus, expectedVersion int64) error {
	query := `
		UPDATE lock_statuses
		SET total_invested = $1, total_tokens = $2, investment_count = $3,
			last_invested_at = $4, version = $5
		WHERE address = $6 AND version = $7
	`

	tag, err := q.Exec(ctx, query,
		l.TotalInvested,
		l.TotalTokens,
		l.InvestmentCount,
		l.LastInvestedAt,
		expectedVersion+1,
		l.Address,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update lock status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

// insertReceipt appends the investment receipt row.
func insertReceipt(ctx context.Context, q execer, r *domain.InvestmentReceipt) error {
	query := `
		INSERT INTO investments (
			receipt_id, sto_address, investor, token_mint, payment_mint,
			amount_paid, tokens_issued, rate, discounted, tier, timestamp, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		r.ReceiptID,
		r.StoAddress,
		r.Investor,
		r.TokenMint,
		r.PaymentMint,
		r.AmountPaid,
		r.TokensIssued,
		r.Rate,
		r.Discounted,
		int16(r.Tier),
		r.Timestamp,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert investment receipt: %w", err)
	}
	return nil
}
