package memory

import (
	"context"
	"fmt"
	"sync"

	"estate-sto/internal/domain"
	"estate-sto/internal/ledger"
	"estate-sto/internal/storage"
)

// Committer applies investment commits against the in-memory stores and
// ledger. A single mutex serializes commits with each other; lifecycle
// transitions racing through StoConfigStore.Update are caught by the
// version CAS and surface as ErrVersionConflict.
type Committer struct {
	mu          sync.Mutex
	stos        *StoConfigStore
	locks       *LockStatusStore
	investments *InvestmentStore
	ledger      ledger.Ledger
}

// NewCommitter creates a committer over the given stores and ledger.
func NewCommitter(stos *StoConfigStore, locks *LockStatusStore, investments *InvestmentStore, l ledger.Ledger) *Committer {
	return &Committer{
		stos:        stos,
		locks:       locks,
		investments: investments,
		ledger:      l,
	}
}

// Compile-time interface check.
var _ storage.InvestmentCommitter = (*Committer)(nil)

// CommitInvestment applies every effect of the commit or none of them.
func (c *Committer) CommitInvestment(ctx context.Context, commit *domain.InvestmentCommit) error {
	if commit == nil || commit.Sto == nil || commit.Lock == nil || commit.Receipt == nil {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Validate the lock status snapshot. Only this committer writes lock
	// statuses, so under mu the check stays valid through the commit.
	lockVersion, lockExists := c.locks.version(commit.Lock.Address)
	if commit.LockVersion == 0 {
		if lockExists {
			return storage.ErrVersionConflict
		}
	} else {
		if !lockExists || lockVersion != commit.LockVersion {
			return storage.ErrVersionConflict
		}
	}

	// Debit the investor before touching offering state; the transfer is
	// the only effect that can fail for external reasons.
	if err := c.ledger.Transfer(ctx, commit.Payment.From, commit.Payment.To, commit.Payment.Mint, commit.Payment.Amount); err != nil {
		return err
	}

	// CAS the offering counters. A concurrent lifecycle transition or
	// competing investment moved the version; undo the debit and report
	// the stale snapshot. The reverse transfer cannot fail: the treasury
	// holds at least the amount just received.
	if err := c.stos.Update(ctx, commit.Sto, commit.StoVersion); err != nil {
		if rbErr := c.ledger.Transfer(ctx, commit.Payment.To, commit.Payment.From, commit.Payment.Mint, commit.Payment.Amount); rbErr != nil {
			return fmt.Errorf("rollback payment after %w: %v", err, rbErr)
		}
		return err
	}

	// Remaining effects cannot fail after the checks above.
	if err := c.ledger.MintTo(ctx, commit.Issue.Mint, commit.Issue.Dest, commit.Issue.Amount); err != nil {
		return fmt.Errorf("mint after commit point: %w", err)
	}
	c.locks.put(commit.Lock, commit.LockVersion+1)
	if err := c.investments.Insert(ctx, commit.Receipt); err != nil {
		return fmt.Errorf("insert receipt after commit point: %w", err)
	}

	return nil
}
