// Package main runs the issuance and offering service: HTTP API, investment
// processing, Prometheus metrics and the WebSocket event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"estate-sto/internal/domain"
	"estate-sto/internal/engine"
	"estate-sto/internal/ledger"
	ledgermem "estate-sto/internal/ledger/memory"
	"estate-sto/internal/observability"
	"estate-sto/internal/storage"
	chstore "estate-sto/internal/storage/clickhouse"
	"estate-sto/internal/storage/memory"
	"estate-sto/internal/storage/migrations"
	pgstore "estate-sto/internal/storage/postgres"
	"estate-sto/internal/stream"
)

// Server holds the wired components behind the HTTP handlers.
type Server struct {
	engine    *engine.Engine
	hub       *stream.Hub
	ledger    ledger.Ledger
	history   storage.InvestmentHistoryStore
	useMemory bool
	started   time.Time
	logger    *log.Logger
}

// allStores holds every storage implementation the engine needs.
type allStores struct {
	tokens      storage.TokenConfigStore
	stos        storage.StoConfigStore
	locks       storage.LockStatusStore
	investments storage.InvestmentStore
	committer   storage.InvestmentCommitter
	history     storage.InvestmentHistoryStore
	ledger      ledger.Ledger
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	migrate := flag.Bool("migrate", false, "Run database migrations on startup")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	hub := stream.NewHub(nil, log.New(os.Stdout, "[stream] ", log.LstdFlags))

	eng, err := engine.New(engine.Options{
		Tokens:      stores.tokens,
		Stos:        stores.stos,
		Locks:       stores.locks,
		Investments: stores.investments,
		Committer:   stores.committer,
		History:     stores.history,
		Events:      hub,
		Logger:      log.New(os.Stdout, "[engine] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	server := &Server{
		engine:    eng,
		hub:       hub,
		ledger:    stores.ledger,
		history:   stores.history,
		useMemory: *useMemory,
		started:   time.Now(),
		logger:    logger,
	}

	httpServer := &http.Server{
		Addr:         *listenAddr,
		Handler:      server.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Keep the uptime gauge fresh for scrapes.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.DefaultMetrics.UptimeSeconds.Set(time.Since(server.started).Seconds())
			}
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", *listenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
	hub.Close()
	cancel()

	logger.Println("Shutdown complete")
}

// createStores wires the storage backends. Memory mode runs everything
// in-process; otherwise PostgreSQL holds transactional state and ClickHouse,
// when configured, mirrors the investment history for analytics.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool, logger *log.Logger) (*allStores, func(), error) {
	if useMemory {
		stos := memory.NewStoConfigStore()
		locks := memory.NewLockStatusStore()
		investments := memory.NewInvestmentStore()
		ledg := ledgermem.NewLedger()
		stores := &allStores{
			tokens:      memory.NewTokenConfigStore(),
			stos:        stos,
			locks:       locks,
			investments: investments,
			committer:   memory.NewCommitter(stos, locks, investments, ledg),
			history:     investments,
			ledger:      ledg,
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		logger.Println("PostgreSQL migrations applied")
	}

	stores := &allStores{
		tokens:      pgstore.NewTokenConfigStore(pool),
		stos:        pgstore.NewStoConfigStore(pool),
		locks:       pgstore.NewLockStatusStore(pool),
		investments: pgstore.NewInvestmentStore(pool),
		committer:   pgstore.NewCommitter(pool),
		ledger:      pgstore.NewLedgerStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse is optional: without it, history reads fall back to the
	// transactional receipt table.
	if clickhouseDSN != "" {
		var chConn *chstore.Conn
		if migrate {
			chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
			if err == nil {
				logger.Println("ClickHouse migrations applied")
			}
		} else {
			chConn, err = chstore.NewConn(ctx, clickhouseDSN)
		}
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.history = chstore.NewInvestmentHistoryStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	} else {
		stores.history = pgHistoryAdapter{pgstore.NewInvestmentStore(pool)}
	}

	return stores, cleanup, nil
}

// pgHistoryAdapter serves history reads from the transactional receipt table
// when no ClickHouse mirror is configured. Insert is a no-op since the
// committer already persisted the receipt.
type pgHistoryAdapter struct {
	investments *pgstore.InvestmentStore
}

var _ storage.InvestmentHistoryStore = pgHistoryAdapter{}

func (a pgHistoryAdapter) Insert(ctx context.Context, r *domain.InvestmentReceipt) error {
	return nil
}

func (a pgHistoryAdapter) GetByInvestor(ctx context.Context, investor string) ([]*domain.InvestmentReceipt, error) {
	return a.investments.GetByInvestor(ctx, investor)
}

func (a pgHistoryAdapter) GetByTimeRange(ctx context.Context, stoAddress string, start, end int64) ([]*domain.InvestmentReceipt, error) {
	return a.investments.GetByTimeRange(ctx, stoAddress, start, end)
}

func (a pgHistoryAdapter) Totals(ctx context.Context, stoAddress string) (int64, int64, error) {
	return a.investments.Totals(ctx, stoAddress)
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
