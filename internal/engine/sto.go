package engine

import (
	"context"
	"fmt"

	"estate-sto/internal/derive"
	"estate-sto/internal/domain"
	"estate-sto/internal/observability"
	"estate-sto/internal/storage"
)

// CreateSto creates an offering for an active token. The offering address
// is derived from the token mint, so there is exactly one offering per mint.
func (e *Engine) CreateSto(ctx context.Context, p domain.StoParams) (*domain.StoConfig, error) {
	if p.TokenMint == "" || p.Authority == "" || p.TreasuryWallet == "" {
		return nil, storage.ErrInvalidInput
	}

	token, err := e.GetToken(ctx, p.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("get token config: %w", err)
	}
	if token.Status != domain.StatusActive {
		return nil, ErrTokenNotActive
	}

	now := e.now()
	if p.StartTime < now {
		return nil, ErrInvalidStartTime
	}
	if p.EndTime <= p.StartTime {
		return nil, ErrInvalidEndTime
	}

	if p.NumTiers < 1 || p.NumTiers > domain.MaxTiers || int(p.NumTiers) != len(p.Tiers) {
		return nil, fmt.Errorf("%w: num tiers %d with %d tiers given", ErrInvalidTierParams, p.NumTiers, len(p.Tiers))
	}
	for i, tp := range p.Tiers {
		if err := tp.Validate(); err != nil {
			return nil, fmt.Errorf("%w: tier %d: %v", ErrInvalidTierParams, i, err)
		}
	}

	enabled := false
	for i := 0; i < domain.NumPaymentMints; i++ {
		if p.PaymentEnabled[i] && p.PaymentMints[i] != "" {
			enabled = true
			break
		}
	}
	if !enabled {
		return nil, ErrNoPaymentMethod
	}

	address, bump, err := derive.StoConfigAddress(p.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("derive sto config address: %w", err)
	}

	paymentDecimals := p.PaymentDecimals
	if paymentDecimals == 0 {
		paymentDecimals = domain.DefaultPaymentDecimals
	}

	tiers := make([]domain.Tier, len(p.Tiers))
	for i, tp := range p.Tiers {
		tiers[i] = domain.Tier{TierParams: tp}
	}

	s := &domain.StoConfig{
		Address:           address,
		Bump:              bump,
		Authority:         p.Authority,
		TokenMint:         p.TokenMint,
		TreasuryWallet:    p.TreasuryWallet,
		PaymentMints:      p.PaymentMints,
		PaymentEnabled:    p.PaymentEnabled,
		PaymentDecimals:   paymentDecimals,
		Tiers:             tiers,
		NumTiers:          p.NumTiers,
		MaxTiers:          domain.MaxTiers,
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		WhitelistRequired: p.WhitelistRequired,
		Status:            domain.StatusCreated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	// The trailing payment slot is reserved and stays disabled.
	s.PaymentEnabled[domain.NumPaymentMints] = false

	if err := e.stos.Insert(ctx, s); err != nil {
		return nil, fmt.Errorf("insert sto config: %w", err)
	}

	e.logger.Printf("created sto %s mint=%s tiers=%d window=[%d,%d]", s.Address, s.TokenMint, s.NumTiers, s.StartTime, s.EndTime)
	observability.RecordStoCreated()
	e.publish("sto_created", now, map[string]interface{}{
		"address": s.Address,
		"mint":    s.TokenMint,
		"tiers":   s.NumTiers,
	})
	return s, nil
}

// ActivateSto moves an offering from Created or Paused to Active. Fails
// with ErrOfferingExpired once the window has closed.
func (e *Engine) ActivateSto(ctx context.Context, mint, authority string) (*domain.StoConfig, error) {
	return e.transitionSto(ctx, mint, authority, domain.StatusActive, func(s *domain.StoConfig) error {
		if s.Status != domain.StatusCreated && s.Status != domain.StatusPaused {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s.Status, domain.StatusActive)
		}
		if e.now() >= s.EndTime {
			return ErrOfferingExpired
		}
		return nil
	})
}

// PauseSto moves an active offering to Paused.
func (e *Engine) PauseSto(ctx context.Context, mint, authority string) (*domain.StoConfig, error) {
	return e.transitionSto(ctx, mint, authority, domain.StatusPaused, func(s *domain.StoConfig) error {
		if s.Status != domain.StatusActive {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s.Status, domain.StatusPaused)
		}
		return nil
	})
}

// CompleteSto moves an offering to its terminal Completed status.
func (e *Engine) CompleteSto(ctx context.Context, mint, authority string) (*domain.StoConfig, error) {
	return e.transitionSto(ctx, mint, authority, domain.StatusCompleted, func(s *domain.StoConfig) error {
		if s.Status != domain.StatusActive && s.Status != domain.StatusPaused {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s.Status, domain.StatusCompleted)
		}
		return nil
	})
}

// transitionSto applies a lifecycle transition under the authority gate and
// the version CAS.
func (e *Engine) transitionSto(ctx context.Context, mint, authority string, target domain.Status, check func(*domain.StoConfig) error) (*domain.StoConfig, error) {
	s, err := e.GetSto(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get sto config: %w", err)
	}
	if s.Authority != authority {
		return nil, ErrUnauthorized
	}
	if err := check(s); err != nil {
		return nil, err
	}

	s.Status = target
	s.UpdatedAt = e.now()
	if err := e.stos.Update(ctx, s, s.Version); err != nil {
		return nil, fmt.Errorf("update sto config: %w", err)
	}
	s.Version++

	e.logger.Printf("sto mint=%s status=%s", mint, target)
	observability.RecordStatusTransition("sto", target.String())
	e.publish("status_changed", s.UpdatedAt, map[string]string{
		"entity": "sto",
		"mint":   mint,
		"status": target.String(),
	})
	return s, nil
}
