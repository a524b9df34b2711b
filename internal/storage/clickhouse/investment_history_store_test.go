package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-sto/internal/domain"
)

func historyReceipt(id, investor string, ts, amount, tokens int64) *domain.InvestmentReceipt {
	return &domain.InvestmentReceipt{
		ReceiptID:    id,
		StoAddress:   "sto-addr-1",
		Investor:     investor,
		TokenMint:    "mint-1",
		PaymentMint:  "usdc",
		AmountPaid:   amount,
		TokensIssued: tokens,
		Rate:         1_000_000,
		Tier:         0,
		Timestamp:    ts,
		CreatedAt:    ts,
	}
}

func TestInvestmentHistoryStore_InsertAndGetByInvestor(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInvestmentHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, historyReceipt("r2", "alice", 2000, 50_000_000, 50_000_000)))
	require.NoError(t, store.Insert(ctx, historyReceipt("r1", "alice", 1000, 100_000_000, 100_000_000)))
	require.NoError(t, store.Insert(ctx, historyReceipt("r3", "bob", 1500, 25_000_000, 25_000_000)))

	receipts, err := store.GetByInvestor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	assert.Equal(t, "r1", receipts[0].ReceiptID)
	assert.Equal(t, "r2", receipts[1].ReceiptID)
	assert.Equal(t, int64(100_000_000), receipts[0].AmountPaid)
	assert.Equal(t, int64(1000), receipts[0].Timestamp)
	assert.False(t, receipts[0].Discounted)
}

func TestInvestmentHistoryStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInvestmentHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, historyReceipt("r1", "alice", 1000, 10, 10)))
	require.NoError(t, store.Insert(ctx, historyReceipt("r2", "alice", 2000, 20, 20)))
	require.NoError(t, store.Insert(ctx, historyReceipt("r3", "bob", 3000, 30, 30)))

	receipts, err := store.GetByTimeRange(ctx, "sto-addr-1", 1000, 2000)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "r1", receipts[0].ReceiptID)
	assert.Equal(t, "r2", receipts[1].ReceiptID)
}

func TestInvestmentHistoryStore_Totals(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInvestmentHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, historyReceipt("r1", "alice", 1000, 100_000_000, 90_000_000)))
	require.NoError(t, store.Insert(ctx, historyReceipt("r2", "bob", 2000, 50_000_000, 45_000_000)))

	paid, issued, err := store.Totals(ctx, "sto-addr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(150_000_000), paid)
	assert.Equal(t, int64(135_000_000), issued)

	paid, issued, err = store.Totals(ctx, "unknown-sto")
	require.NoError(t, err)
	assert.Equal(t, int64(0), paid)
	assert.Equal(t, int64(0), issued)
}
