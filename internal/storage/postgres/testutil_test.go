package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"estate-sto/internal/domain"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// embedded migrations. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies the schema the same way cmd/migrate does. The SQL
// lives next to the migrations package; it is inlined here to avoid an
// import cycle between this package and migrations.
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, testSchema)
	require.NoError(t, err, "failed to apply schema")
}

// newTestToken builds a valid token config for tests.
func newTestToken(address, mint string) *domain.TokenConfig {
	return &domain.TokenConfig{
		Address:        address,
		Bump:           254,
		Authority:      "authority-1",
		Mint:           mint,
		Name:           "Harbor Tower REIT",
		Symbol:         "HTR",
		Details:        "https://example.com/htr.json",
		Decimals:       9,
		DocumentHash:   "a1b2c3",
		TreasuryWallet: "treasury-1",
		Status:         domain.StatusCreated,
		CreatedAt:      1_700_000_000,
		UpdatedAt:      1_700_000_000,
	}
}

// newTestSto builds a valid single-tier offering for tests.
func newTestSto(address, mint string) *domain.StoConfig {
	s := &domain.StoConfig{
		Address:         address,
		Bump:            253,
		Authority:       "authority-1",
		TokenMint:       mint,
		TreasuryWallet:  "treasury-1",
		PaymentDecimals: domain.DefaultPaymentDecimals,
		Tiers: []domain.Tier{{
			TierParams: domain.TierParams{
				Rate:             1_000_000,
				RateDiscounted:   900_000,
				TotalTokens:      1_000_000_000_000,
				TokensDiscounted: 100_000_000_000,
				MinInvestment:    100_000_000,
				MaxInvestment:    100_000_000_000,
			},
		}},
		NumTiers:  1,
		MaxTiers:  domain.MaxTiers,
		StartTime: 1_700_000_000,
		EndTime:   1_800_000_000,
		Status:    domain.StatusCreated,
		CreatedAt: 1_700_000_000,
		UpdatedAt: 1_700_000_000,
	}
	s.PaymentMints[0] = "usdc"
	s.PaymentEnabled[0] = true
	return s
}

// newTestReceipt builds a receipt for tests.
func newTestReceipt(id, stoAddress, investor string, ts int64) *domain.InvestmentReceipt {
	return &domain.InvestmentReceipt{
		ReceiptID:    id,
		StoAddress:   stoAddress,
		Investor:     investor,
		TokenMint:    "mint-1",
		PaymentMint:  "usdc",
		AmountPaid:   100_000_000,
		TokensIssued: 100_000_000,
		Rate:         1_000_000,
		Tier:         0,
		Timestamp:    ts,
		CreatedAt:    ts,
	}
}

const testSchema = `
CREATE TABLE IF NOT EXISTS token_configs (
    address         TEXT PRIMARY KEY,
    bump            SMALLINT NOT NULL,
    authority       TEXT NOT NULL,
    mint            TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL,
    symbol          TEXT NOT NULL,
    details         TEXT NOT NULL DEFAULT '',
    decimals        SMALLINT NOT NULL,
    document_hash   TEXT NOT NULL DEFAULT '',
    treasury_wallet TEXT NOT NULL,
    status          TEXT NOT NULL,
    version         BIGINT NOT NULL DEFAULT 0,
    created_at      BIGINT NOT NULL,
    updated_at      BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS sto_configs (
    address            TEXT PRIMARY KEY,
    bump               SMALLINT NOT NULL,
    authority          TEXT NOT NULL,
    token_mint         TEXT NOT NULL UNIQUE,
    treasury_wallet    TEXT NOT NULL,
    payment_mints      TEXT[] NOT NULL,
    payment_enabled    BOOLEAN[] NOT NULL,
    payment_decimals   SMALLINT NOT NULL,
    tiers              JSONB NOT NULL,
    num_tiers          SMALLINT NOT NULL,
    max_tiers          SMALLINT NOT NULL,
    current_tier       SMALLINT NOT NULL DEFAULT 0,
    start_time         BIGINT NOT NULL,
    end_time           BIGINT NOT NULL,
    whitelist_required BOOLEAN NOT NULL DEFAULT FALSE,
    status             TEXT NOT NULL,
    total_sold         BIGINT NOT NULL DEFAULT 0,
    investor_count     BIGINT NOT NULL DEFAULT 0,
    version            BIGINT NOT NULL DEFAULT 0,
    created_at         BIGINT NOT NULL,
    updated_at         BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS lock_statuses (
    address           TEXT PRIMARY KEY,
    bump              SMALLINT NOT NULL,
    investor          TEXT NOT NULL,
    token_mint        TEXT NOT NULL,
    total_invested    BIGINT NOT NULL DEFAULT 0,
    total_tokens      BIGINT NOT NULL DEFAULT 0,
    investment_count  BIGINT NOT NULL DEFAULT 0,
    first_invested_at BIGINT NOT NULL,
    last_invested_at  BIGINT NOT NULL,
    version           BIGINT NOT NULL DEFAULT 0,
    UNIQUE (investor, token_mint)
);

CREATE TABLE IF NOT EXISTS token_balances (
    account TEXT NOT NULL,
    mint    TEXT NOT NULL,
    amount  BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0),
    PRIMARY KEY (account, mint)
);

CREATE TABLE IF NOT EXISTS investments (
    receipt_id    TEXT PRIMARY KEY,
    sto_address   TEXT NOT NULL,
    investor      TEXT NOT NULL,
    token_mint    TEXT NOT NULL,
    payment_mint  TEXT NOT NULL,
    amount_paid   BIGINT NOT NULL,
    tokens_issued BIGINT NOT NULL,
    rate          BIGINT NOT NULL,
    discounted    BOOLEAN NOT NULL DEFAULT FALSE,
    tier          SMALLINT NOT NULL,
    timestamp     BIGINT NOT NULL,
    created_at    BIGINT NOT NULL
);
`
