package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-sto/internal/domain"
	"estate-sto/internal/ledger"
	"estate-sto/internal/storage"
)

// setupCommit seeds an active offering and a funded investor, returning a
// ready-to-apply commit for a 100 USDC investment.
func setupCommit(t *testing.T, pool *Pool) *domain.InvestmentCommit {
	t.Helper()

	ctx := context.Background()
	stos := NewStoConfigStore(pool)
	ledg := NewLedgerStore(pool)

	s := newTestSto("sto-addr-1", "mint-1")
	s.Status = domain.StatusActive
	require.NoError(t, stos.Insert(ctx, s))
	require.NoError(t, ledg.MintTo(ctx, "usdc", "investor-1", 1_000_000_000))

	next := s.Clone()
	next.Tiers[0].TokensSold = 100_000_000
	next.TotalSold = 100_000_000
	next.InvestorCount = 1

	return &domain.InvestmentCommit{
		Sto:        next,
		StoVersion: 0,
		Lock: &domain.LockStatus{
			Address:         "lock-addr-1",
			Bump:            252,
			Investor:        "investor-1",
			TokenMint:       "mint-1",
			TotalInvested:   100_000_000,
			TotalTokens:     100_000_000,
			InvestmentCount: 1,
			FirstInvestedAt: 1_700_000_500,
			LastInvestedAt:  1_700_000_500,
		},
		LockVersion: 0,
		Receipt:     newTestReceipt("receipt-1", "sto-addr-1", "investor-1", 1_700_000_500),
		Payment: domain.TransferLeg{
			From:   "investor-1",
			To:     "treasury-1",
			Mint:   "usdc",
			Amount: 100_000_000,
		},
		Issue: domain.MintLeg{
			Mint:   "mint-1",
			Dest:   "investor-1",
			Amount: 100_000_000,
		},
	}
}

func TestCommitter_CommitInvestment(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	commit := setupCommit(t, pool)

	committer := NewCommitter(pool)
	require.NoError(t, committer.CommitInvestment(ctx, commit))

	// Offering counters advanced under CAS.
	sto, err := NewStoConfigStore(pool).Get(ctx, "sto-addr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), sto.TotalSold)
	assert.Equal(t, int64(1), sto.InvestorCount)
	assert.Equal(t, int64(1), sto.Version)

	// Lock row created at version 1.
	lock, err := NewLockStatusStore(pool).Get(ctx, "lock-addr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), lock.TotalInvested)
	assert.Equal(t, int64(1), lock.InvestmentCount)
	assert.Equal(t, int64(1), lock.Version)

	// Receipt persisted.
	receipt, err := NewInvestmentStore(pool).GetByID(ctx, "receipt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), receipt.TokensIssued)

	// Money moved and tokens were issued.
	ledg := NewLedgerStore(pool)
	investorUSDC, err := ledg.BalanceOf(ctx, "investor-1", "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(900_000_000), investorUSDC)

	treasuryUSDC, err := ledg.BalanceOf(ctx, "treasury-1", "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), treasuryUSDC)

	investorTokens, err := ledg.BalanceOf(ctx, "investor-1", "mint-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), investorTokens)
}

func TestCommitter_StaleStoVersion(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	commit := setupCommit(t, pool)

	// A lifecycle transition bumps the version behind the commit's back.
	stos := NewStoConfigStore(pool)
	s, err := stos.Get(ctx, "sto-addr-1")
	require.NoError(t, err)
	s.Status = domain.StatusPaused
	require.NoError(t, stos.Update(ctx, s, 0))

	committer := NewCommitter(pool)
	err = committer.CommitInvestment(ctx, commit)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	// Everything rolled back.
	ledg := NewLedgerStore(pool)
	investorUSDC, err := ledg.BalanceOf(ctx, "investor-1", "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), investorUSDC)

	_, err = NewLockStatusStore(pool).Get(ctx, "lock-addr-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = NewInvestmentStore(pool).GetByID(ctx, "receipt-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCommitter_InsufficientFunds(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	commit := setupCommit(t, pool)
	commit.Payment.Amount = 2_000_000_000 // more than the investor holds

	committer := NewCommitter(pool)
	err := committer.CommitInvestment(ctx, commit)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Offering counters untouched.
	sto, err := NewStoConfigStore(pool).Get(ctx, "sto-addr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sto.TotalSold)
	assert.Equal(t, int64(0), sto.Version)
}

func TestCommitter_StaleLockVersion(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	commit := setupCommit(t, pool)

	committer := NewCommitter(pool)
	require.NoError(t, committer.CommitInvestment(ctx, commit))

	// Replaying the same first-investment commit against the new state must
	// fail on the lock insert.
	replay := setupReplay(commit)
	err := committer.CommitInvestment(ctx, replay)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	// Only the first debit went through.
	ledg := NewLedgerStore(pool)
	investorUSDC, err := ledg.BalanceOf(ctx, "investor-1", "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(900_000_000), investorUSDC)
}

// setupReplay rebuilds the commit against the post-commit offering version
// but still claiming a first investment.
func setupReplay(c *domain.InvestmentCommit) *domain.InvestmentCommit {
	replay := *c
	replay.StoVersion = 1
	replay.LockVersion = 0
	r := *c.Receipt
	r.ReceiptID = "receipt-2"
	replay.Receipt = &r
	return &replay
}
