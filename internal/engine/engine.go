// Package engine orchestrates token issuance, offering lifecycle and
// investment processing against the storage and ledger layers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"estate-sto/internal/derive"
	"estate-sto/internal/domain"
	"estate-sto/internal/observability"
	"estate-sto/internal/storage"
)

// EventSink receives engine events for fan-out to subscribers.
type EventSink interface {
	Publish(eventType string, timestamp int64, data interface{})
}

// Options configure an Engine. Tokens, Stos, Locks, Investments and
// Committer are required; the rest are optional.
type Options struct {
	Tokens      storage.TokenConfigStore
	Stos        storage.StoConfigStore
	Locks       storage.LockStatusStore
	Investments storage.InvestmentStore
	Committer   storage.InvestmentCommitter

	// History is the best-effort analytics mirror. Insert failures are
	// logged, never surfaced to investors.
	History storage.InvestmentHistoryStore

	// Events receives a notification after each accepted state change.
	Events EventSink

	// Now supplies the current Unix time in seconds. Defaults to the wall
	// clock; tests pin it.
	Now func() int64

	Logger *log.Logger
}

// Engine is the issuance and offering engine.
type Engine struct {
	tokens      storage.TokenConfigStore
	stos        storage.StoConfigStore
	locks       storage.LockStatusStore
	investments storage.InvestmentStore
	committer   storage.InvestmentCommitter
	history     storage.InvestmentHistoryStore
	events      EventSink
	now         func() int64
	logger      *log.Logger
}

// New creates an Engine from options.
func New(opts Options) (*Engine, error) {
	if opts.Tokens == nil || opts.Stos == nil || opts.Locks == nil || opts.Investments == nil || opts.Committer == nil {
		return nil, errors.New("engine: missing required store")
	}

	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[engine] ", log.LstdFlags)
	}

	return &Engine{
		tokens:      opts.Tokens,
		stos:        opts.Stos,
		locks:       opts.Locks,
		investments: opts.Investments,
		committer:   opts.Committer,
		history:     opts.History,
		events:      opts.Events,
		now:         now,
		logger:      logger,
	}, nil
}

// publish sends an event when a sink is configured.
func (e *Engine) publish(eventType string, timestamp int64, data interface{}) {
	if e.events != nil {
		e.events.Publish(eventType, timestamp, data)
	}
}

// CreateSecurityToken mints a new security token config in Created status.
// The record address is derived from the mint, so a second creation attempt
// for the same mint fails with ErrDuplicateKey.
func (e *Engine) CreateSecurityToken(ctx context.Context, p domain.TokenParams) (*domain.TokenConfig, error) {
	switch {
	case p.Name == "":
		return nil, ErrEmptyName
	case p.Symbol == "":
		return nil, ErrEmptySymbol
	case p.Mint == "" || p.Authority == "" || p.TreasuryWallet == "":
		return nil, storage.ErrInvalidInput
	}

	address, bump, err := derive.TokenConfigAddress(p.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive token config address: %w", err)
	}

	now := e.now()
	c := &domain.TokenConfig{
		Address:        address,
		Bump:           bump,
		Authority:      p.Authority,
		Mint:           p.Mint,
		Name:           p.Name,
		Symbol:         p.Symbol,
		Details:        p.Details,
		Decimals:       domain.DecimalsFor(p.Divisible),
		DocumentHash:   p.DocumentHash,
		TreasuryWallet: p.TreasuryWallet,
		Status:         domain.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.tokens.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("insert token config: %w", err)
	}

	e.logger.Printf("created token %s (%s) mint=%s decimals=%d", c.Symbol, c.Address, c.Mint, c.Decimals)
	observability.RecordTokenCreated()
	e.publish("token_created", now, map[string]string{
		"address": c.Address,
		"mint":    c.Mint,
		"symbol":  c.Symbol,
	})
	return c, nil
}

// ActivateToken moves a token from Created to Active. Only the token's
// authority may activate it.
func (e *Engine) ActivateToken(ctx context.Context, mint, authority string) (*domain.TokenConfig, error) {
	address, _, err := derive.TokenConfigAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive token config address: %w", err)
	}

	c, err := e.tokens.Get(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get token config: %w", err)
	}
	if c.Authority != authority {
		return nil, ErrUnauthorized
	}
	if c.Status != domain.StatusCreated {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, c.Status, domain.StatusActive)
	}

	c.Status = domain.StatusActive
	c.UpdatedAt = e.now()
	if err := e.tokens.Update(ctx, c, c.Version); err != nil {
		return nil, fmt.Errorf("update token config: %w", err)
	}
	c.Version++

	e.logger.Printf("activated token mint=%s", mint)
	observability.RecordStatusTransition("token", domain.StatusActive.String())
	e.publish("status_changed", c.UpdatedAt, map[string]string{
		"entity": "token",
		"mint":   mint,
		"status": domain.StatusActive.String(),
	})
	return c, nil
}

// GetToken retrieves a token config by mint.
func (e *Engine) GetToken(ctx context.Context, mint string) (*domain.TokenConfig, error) {
	address, _, err := derive.TokenConfigAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive token config address: %w", err)
	}
	return e.tokens.Get(ctx, address)
}

// GetSto retrieves an offering config by token mint.
func (e *Engine) GetSto(ctx context.Context, mint string) (*domain.StoConfig, error) {
	address, _, err := derive.StoConfigAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive sto config address: %w", err)
	}
	return e.stos.Get(ctx, address)
}

// GetLockStatus retrieves an investor's participation record for a mint.
func (e *Engine) GetLockStatus(ctx context.Context, investor, mint string) (*domain.LockStatus, error) {
	address, _, err := derive.LockStatusAddress(investor, mint)
	if err != nil {
		return nil, fmt.Errorf("derive lock status address: %w", err)
	}
	return e.locks.Get(ctx, address)
}

// InvestmentsByInvestor lists an investor's receipts, oldest first.
func (e *Engine) InvestmentsByInvestor(ctx context.Context, investor string) ([]*domain.InvestmentReceipt, error) {
	return e.investments.GetByInvestor(ctx, investor)
}

// InvestmentsBySto lists an offering's receipts, oldest first.
func (e *Engine) InvestmentsBySto(ctx context.Context, stoAddress string) ([]*domain.InvestmentReceipt, error) {
	return e.investments.GetBySto(ctx, stoAddress)
}
