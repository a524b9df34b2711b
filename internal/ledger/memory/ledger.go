// Package memory provides an in-memory ledger for the engine's default
// mode and for tests.
package memory

import (
	"context"
	"sync"

	"estate-sto/internal/ledger"
)

// balanceKey identifies one (account, mint) balance.
type balanceKey struct {
	account string
	mint    string
}

// Ledger is an in-memory implementation of ledger.Ledger.
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]int64
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]int64)}
}

// Compile-time interface check.
var _ ledger.Ledger = (*Ledger)(nil)

// Transfer atomically moves amount of mint between accounts.
func (l *Ledger) Transfer(_ context.Context, from, to, mint string, amount int64) error {
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromKey := balanceKey{from, mint}
	if l.balances[fromKey] < amount {
		return ledger.ErrInsufficientFunds
	}
	l.balances[fromKey] -= amount
	l.balances[balanceKey{to, mint}] += amount
	return nil
}

// MintTo credits newly issued tokens to the destination account.
func (l *Ledger) MintTo(_ context.Context, mint, dest string, amount int64) error {
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[balanceKey{dest, mint}] += amount
	return nil
}

// BalanceOf returns the balance of an account for a mint.
func (l *Ledger) BalanceOf(_ context.Context, account, mint string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[balanceKey{account, mint}], nil
}
