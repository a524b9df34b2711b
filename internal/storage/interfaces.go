package storage

import (
	"context"

	"estate-sto/internal/domain"
)

// TokenConfigStore provides access to token_configs storage.
type TokenConfigStore interface {
	// Insert adds a new token config. Returns ErrDuplicateKey if the
	// address exists.
	Insert(ctx context.Context, c *domain.TokenConfig) error

	// Get retrieves a token config by derived address. Returns ErrNotFound
	// if not exists.
	Get(ctx context.Context, address string) (*domain.TokenConfig, error)

	// Update replaces the stored record if its version still equals
	// expectedVersion, bumping Version by one. Returns ErrVersionConflict
	// on a stale snapshot, ErrNotFound if the record does not exist.
	Update(ctx context.Context, c *domain.TokenConfig, expectedVersion int64) error
}

// StoConfigStore provides access to sto_configs storage.
type StoConfigStore interface {
	// Insert adds a new offering config. Returns ErrDuplicateKey if the
	// address exists.
	Insert(ctx context.Context, s *domain.StoConfig) error

	// Get retrieves an offering by derived address. Returns ErrNotFound
	// if not exists.
	Get(ctx context.Context, address string) (*domain.StoConfig, error)

	// Update replaces the stored record if its version still equals
	// expectedVersion, bumping Version by one. Returns ErrVersionConflict
	// on a stale snapshot, ErrNotFound if the record does not exist.
	Update(ctx context.Context, s *domain.StoConfig, expectedVersion int64) error
}

// LockStatusStore provides access to lock_statuses storage.
type LockStatusStore interface {
	// Get retrieves a lock status by derived address. Returns ErrNotFound
	// if the investor has not invested in the offering yet.
	Get(ctx context.Context, address string) (*domain.LockStatus, error)

	// GetByMint retrieves all lock statuses for an offering's token mint.
	GetByMint(ctx context.Context, mint string) ([]*domain.LockStatus, error)
}

// InvestmentStore provides read access to accepted investment receipts.
// Receipts are written only through an InvestmentCommitter.
type InvestmentStore interface {
	// GetByID retrieves a receipt by its ID. Returns ErrNotFound if not
	// exists.
	GetByID(ctx context.Context, receiptID string) (*domain.InvestmentReceipt, error)

	// GetByInvestor retrieves all receipts for an investor, ordered by
	// timestamp ASC.
	GetByInvestor(ctx context.Context, investor string) ([]*domain.InvestmentReceipt, error)

	// GetBySto retrieves all receipts for an offering, ordered by
	// timestamp ASC.
	GetBySto(ctx context.Context, stoAddress string) ([]*domain.InvestmentReceipt, error)
}

// InvestmentCommitter applies one investment as a single atomic unit of
// work: payment debit, token credit, offering counters, lock status and
// receipt all commit together or not at all.
type InvestmentCommitter interface {
	// CommitInvestment validates the commit's expected versions against
	// stored state and applies every effect. Returns ErrVersionConflict on
	// a stale snapshot and ledger.ErrInsufficientFunds when the payment
	// debit cannot be covered; in both cases no state changes.
	CommitInvestment(ctx context.Context, c *domain.InvestmentCommit) error
}

// InvestmentHistoryStore is the append-only analytics mirror of accepted
// investments. Writes are best-effort after commit; the transactional
// record of truth is InvestmentStore.
type InvestmentHistoryStore interface {
	// Insert appends a receipt to the history.
	Insert(ctx context.Context, r *domain.InvestmentReceipt) error

	// GetByInvestor retrieves all receipts for an investor, ordered by
	// timestamp ASC.
	GetByInvestor(ctx context.Context, investor string) ([]*domain.InvestmentReceipt, error)

	// GetByTimeRange retrieves receipts for an offering within
	// [start, end] (inclusive, Unix seconds).
	GetByTimeRange(ctx context.Context, stoAddress string, start, end int64) ([]*domain.InvestmentReceipt, error)

	// Totals returns the aggregate payment volume and tokens issued for an
	// offering.
	Totals(ctx context.Context, stoAddress string) (amountPaid, tokensIssued int64, err error)
}
