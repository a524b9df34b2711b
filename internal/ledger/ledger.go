// Package ledger defines the payment/token ledger collaborator boundary.
// The STO engine treats it as an external ledger capable of atomic balance
// transfers; every primitive is all-or-nothing.
package ledger

import (
	"context"
	"errors"
)

// Ledger errors.
var (
	// ErrInsufficientFunds is returned when a debit exceeds the source
	// account's balance. Propagated to investors unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Ledger provides atomic balance transfer and mint primitives.
type Ledger interface {
	// Transfer atomically moves amount of mint from one account to another.
	// Returns ErrInsufficientFunds if the source balance is too low.
	Transfer(ctx context.Context, from, to, mint string, amount int64) error

	// MintTo credits amount of newly issued mint to the destination account.
	MintTo(ctx context.Context, mint, dest string, amount int64) error

	// BalanceOf returns the current balance of an account for a mint.
	// Unknown accounts hold a zero balance.
	BalanceOf(ctx context.Context, account, mint string) (int64, error)
}
