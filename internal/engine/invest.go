package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate-sto/internal/derive"
	"estate-sto/internal/domain"
	"estate-sto/internal/idhash"
	"estate-sto/internal/observability"
	"estate-sto/internal/pricing"
	"estate-sto/internal/storage"
)

// InvestRequest is one investor's attempt to buy into an offering.
type InvestRequest struct {
	Investor     string
	TokenMint    string
	PaymentMint  string
	Amount       int64 // payment-token base units
	UseDiscount  bool
	IsAccredited bool
}

// Invest processes an investment as a single all-or-nothing transition.
// The current offering and lock snapshots are read, the next state is
// computed on copies, and the whole effect set commits under a version CAS.
// A stale snapshot surfaces as storage.ErrVersionConflict; the caller
// retries, nothing was applied.
//
// Rejections short-circuit in a fixed order: offering status, time window,
// accreditation, payment method, amount bounds, token status, inventory.
func (e *Engine) Invest(ctx context.Context, req InvestRequest) (*domain.InvestmentReceipt, error) {
	start := time.Now()
	defer func() {
		observability.RecordInvestmentLatency(time.Since(start).Seconds())
	}()

	if req.Investor == "" || req.TokenMint == "" || req.Amount <= 0 {
		return nil, reject("invalid_input", storage.ErrInvalidInput)
	}

	sto, err := e.GetSto(ctx, req.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("get sto config: %w", err)
	}

	now := e.now()
	if sto.Status != domain.StatusActive {
		return nil, reject("sto_not_active", ErrStoNotActive)
	}
	if !sto.InWindow(now) {
		return nil, reject("outside_window", ErrOutsideOfferingWindow)
	}
	if sto.WhitelistRequired && !req.IsAccredited {
		return nil, reject("not_accredited", ErrNotAccredited)
	}
	if !sto.PaymentAccepted(req.PaymentMint) {
		return nil, reject("payment_method", ErrPaymentMethodNotAccepted)
	}

	// Resolve the tier this fill will be served from before any bounds
	// check: once a tier's inventory is exhausted, the next tier with
	// inventory governs, including its investment bounds.
	serving := int(sto.CurrentTier)
	if sto.Tiers[serving].Exhausted() {
		serving = pricing.NextTierWithInventory(sto, serving)
		if serving < 0 {
			return nil, reject("sold_out", ErrOfferingSoldOut)
		}
	}

	// Per-transaction minimum and cumulative maximum against the serving
	// tier's bounds. The cumulative cap counts everything the investor has
	// already put into this offering.
	tier := &sto.Tiers[serving]
	if req.Amount < tier.MinInvestment {
		return nil, reject("below_min", ErrInvestmentOutOfRange)
	}

	lock, lockVersion, err := e.lockSnapshot(ctx, req.Investor, req.TokenMint)
	if err != nil {
		return nil, err
	}
	invested := int64(0)
	if lock != nil {
		invested = lock.TotalInvested
	}
	if invested+req.Amount > tier.MaxInvestment {
		return nil, reject("above_max", ErrInvestmentOutOfRange)
	}

	token, err := e.GetToken(ctx, req.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("get token config: %w", err)
	}
	if token.Status != domain.StatusActive {
		return nil, reject("token_not_active", ErrTokenNotActive)
	}

	// Compute the next offering state on a copy of the snapshot.
	next := sto.Clone()
	if serving != int(next.CurrentTier) {
		next.CurrentTier = uint8(serving)
		observability.RecordTierAdvance()
	}

	scale := pricing.Scale(next.PaymentDecimals)
	quote, err := pricing.PriceFor(&next.Tiers[serving], req.Amount, scale, req.UseDiscount)
	if err != nil {
		if errors.Is(err, pricing.ErrInsufficientInventory) {
			// No cascading fills: an amount the serving tier cannot cover
			// in full is rejected outright.
			if next.SoldOut() {
				return nil, reject("sold_out", ErrOfferingSoldOut)
			}
			return nil, reject("tier_inventory", ErrInsufficientTierInventory)
		}
		return nil, reject("pricing", err)
	}
	if quote.TokensOut <= 0 {
		return nil, reject("below_min", ErrInvestmentOutOfRange)
	}

	if quote.Discounted {
		next.Tiers[serving].TokensSoldDiscounted += quote.TokensOut
	} else {
		next.Tiers[serving].TokensSold += quote.TokensOut
	}
	next.TotalSold += quote.TokensOut
	next.UpdatedAt = now

	lockNext, err := e.nextLock(lock, req, quote.TokensOut, now)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		next.InvestorCount++
	}

	receipt := &domain.InvestmentReceipt{
		ReceiptID:    idhash.ComputeReceiptID(sto.Address, req.Investor, next.TotalSold, lockNext.InvestmentCount),
		StoAddress:   sto.Address,
		Investor:     req.Investor,
		TokenMint:    req.TokenMint,
		PaymentMint:  req.PaymentMint,
		AmountPaid:   req.Amount,
		TokensIssued: quote.TokensOut,
		Rate:         quote.Rate,
		Discounted:   quote.Discounted,
		Tier:         uint8(serving),
		Timestamp:    now,
		CreatedAt:    now,
	}

	commit := &domain.InvestmentCommit{
		Sto:         next,
		StoVersion:  sto.Version,
		Lock:        lockNext,
		LockVersion: lockVersion,
		Receipt:     receipt,
		Payment: domain.TransferLeg{
			From:   req.Investor,
			To:     sto.TreasuryWallet,
			Mint:   req.PaymentMint,
			Amount: req.Amount,
		},
		Issue: domain.MintLeg{
			Mint:   req.TokenMint,
			Dest:   req.Investor,
			Amount: quote.TokensOut,
		},
	}

	if err := e.committer.CommitInvestment(ctx, commit); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			observability.RecordCommitConflict()
		}
		return nil, fmt.Errorf("commit investment: %w", err)
	}

	e.logger.Printf("investment %s investor=%s mint=%s amount=%d tokens=%d tier=%d discounted=%t",
		receipt.ReceiptID, req.Investor, req.TokenMint, req.Amount, quote.TokensOut, serving, quote.Discounted)
	observability.RecordInvestmentAccepted(sto.Address, req.PaymentMint, quote.TokensOut, req.Amount, now)

	if e.history != nil {
		// A duplicate means the mirror shares storage with the transactional
		// receipt store and the committer already wrote it.
		if err := e.history.Insert(ctx, receipt); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			e.logger.Printf("history insert %s failed: %v", receipt.ReceiptID, err)
		}
	}
	e.publish("investment", now, map[string]interface{}{
		"receipt_id": receipt.ReceiptID,
		"sto":        sto.Address,
		"investor":   req.Investor,
		"amount":     req.Amount,
		"tokens":     quote.TokensOut,
		"tier":       serving,
	})
	return receipt, nil
}

// lockSnapshot reads the investor's lock record. A missing record means a
// first investment and returns (nil, 0, nil).
func (e *Engine) lockSnapshot(ctx context.Context, investor, mint string) (*domain.LockStatus, int64, error) {
	address, _, err := derive.LockStatusAddress(investor, mint)
	if err != nil {
		return nil, 0, fmt.Errorf("derive lock status address: %w", err)
	}

	lock, err := e.locks.Get(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("get lock status: %w", err)
	}
	return lock, lock.Version, nil
}

// nextLock computes the investor's lock record after this investment.
func (e *Engine) nextLock(lock *domain.LockStatus, req InvestRequest, tokensOut, now int64) (*domain.LockStatus, error) {
	if lock != nil {
		next := *lock
		next.TotalInvested += req.Amount
		next.TotalTokens += tokensOut
		next.InvestmentCount++
		next.LastInvestedAt = now
		return &next, nil
	}

	address, bump, err := derive.LockStatusAddress(req.Investor, req.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("derive lock status address: %w", err)
	}
	return &domain.LockStatus{
		Address:         address,
		Bump:            bump,
		Investor:        req.Investor,
		TokenMint:       req.TokenMint,
		TotalInvested:   req.Amount,
		TotalTokens:     tokensOut,
		InvestmentCount: 1,
		FirstInvestedAt: now,
		LastInvestedAt:  now,
	}, nil
}

// reject records a rejection metric and returns the error.
func reject(reason string, err error) error {
	observability.RecordInvestmentRejected(reason)
	return err
}
