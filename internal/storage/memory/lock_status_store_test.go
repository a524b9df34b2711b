package memory

import (
	"context"
	"errors"
	"testing"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

func testLock(address, investor, mint string, firstAt int64) *domain.LockStatus {
	return &domain.LockStatus{
		Address:         address,
		Bump:            252,
		Investor:        investor,
		TokenMint:       mint,
		TotalInvested:   100_000_000,
		TotalTokens:     100_000_000,
		InvestmentCount: 1,
		FirstInvestedAt: firstAt,
		LastInvestedAt:  firstAt,
	}
}

func TestLockStatusStore_Get(t *testing.T) {
	store := NewLockStatusStore()
	ctx := context.Background()

	store.put(testLock("lock-1", "investor-1", "mint-1", 1100), 1)

	got, err := store.Get(ctx, "lock-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Investor != "investor-1" || got.Version != 1 {
		t.Errorf("got investor=%s version=%d", got.Investor, got.Version)
	}

	// Returned value is a copy.
	got.TotalInvested = 999
	again, err := store.Get(ctx, "lock-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again.TotalInvested != 100_000_000 {
		t.Errorf("stored record mutated: %d", again.TotalInvested)
	}

	if _, err := store.Get(ctx, "no-such-lock"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLockStatusStore_GetByMint(t *testing.T) {
	store := NewLockStatusStore()
	ctx := context.Background()

	store.put(testLock("lock-2", "investor-2", "mint-1", 1300), 1)
	store.put(testLock("lock-1", "investor-1", "mint-1", 1100), 1)
	store.put(testLock("lock-3", "investor-1", "mint-2", 1200), 1)

	got, err := store.GetByMint(ctx, "mint-1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d locks, want 2", len(got))
	}
	// Earliest first investment first.
	if got[0].Address != "lock-1" || got[1].Address != "lock-2" {
		t.Errorf("order = [%s, %s]", got[0].Address, got[1].Address)
	}

	empty, err := store.GetByMint(ctx, "no-such-mint")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d locks for unknown mint", len(empty))
	}
}
