package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"estate-sto/internal/ledger"
)

func TestLedger_MintAndTransfer(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	if err := l.MintTo(ctx, "usdc", "alice", 1_000_000); err != nil {
		t.Fatalf("MintTo failed: %v", err)
	}

	if err := l.Transfer(ctx, "alice", "bob", "usdc", 400_000); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	aliceBal, _ := l.BalanceOf(ctx, "alice", "usdc")
	bobBal, _ := l.BalanceOf(ctx, "bob", "usdc")
	if aliceBal != 600_000 {
		t.Errorf("alice balance = %d, want 600_000", aliceBal)
	}
	if bobBal != 400_000 {
		t.Errorf("bob balance = %d, want 400_000", bobBal)
	}
}

func TestLedger_InsufficientFunds(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	err := l.Transfer(ctx, "alice", "bob", "usdc", 1)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	// Failed transfer must not credit the destination.
	bobBal, _ := l.BalanceOf(ctx, "bob", "usdc")
	if bobBal != 0 {
		t.Errorf("bob balance = %d, want 0 after failed transfer", bobBal)
	}
}

func TestLedger_InvalidAmount(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	if err := l.MintTo(ctx, "usdc", "alice", 0); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for zero mint, got %v", err)
	}
	if err := l.Transfer(ctx, "alice", "bob", "usdc", -5); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for negative transfer, got %v", err)
	}
}

func TestLedger_BalancesPerMint(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	if err := l.MintTo(ctx, "usdc", "alice", 100); err != nil {
		t.Fatalf("MintTo failed: %v", err)
	}

	usdtBal, _ := l.BalanceOf(ctx, "alice", "usdt")
	if usdtBal != 0 {
		t.Errorf("usdt balance = %d, want 0", usdtBal)
	}
}

func TestLedger_ConcurrentTransfers(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	if err := l.MintTo(ctx, "usdc", "source", 100); err != nil {
		t.Fatalf("MintTo failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Transfer(ctx, "source", "sink", "usdc", 1)
		}()
	}
	wg.Wait()

	srcBal, _ := l.BalanceOf(ctx, "source", "usdc")
	sinkBal, _ := l.BalanceOf(ctx, "sink", "usdc")
	if srcBal != 0 {
		t.Errorf("source balance = %d, want 0", srcBal)
	}
	if sinkBal != 100 {
		t.Errorf("sink balance = %d, want 100 (never over-debited)", sinkBal)
	}
}
