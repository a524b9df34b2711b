package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"estate-sto/internal/domain"
	"estate-sto/internal/engine"
	"estate-sto/internal/ledger"
	"estate-sto/internal/observability"
	"estate-sto/internal/storage"
)

// routes wires all HTTP handlers onto a mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/tokens", s.handleTokens)
	mux.HandleFunc("/v1/tokens/activate", s.handleActivateToken)
	mux.HandleFunc("/v1/stos", s.handleStos)
	mux.HandleFunc("/v1/stos/activate", s.handleStoTransition(s.engine.ActivateSto))
	mux.HandleFunc("/v1/stos/pause", s.handleStoTransition(s.engine.PauseSto))
	mux.HandleFunc("/v1/stos/complete", s.handleStoTransition(s.engine.CompleteSto))
	mux.HandleFunc("/v1/invest", s.handleInvest)
	mux.HandleFunc("/v1/investments", s.handleInvestments)
	mux.HandleFunc("/v1/locks", s.handleLockStatus)
	mux.HandleFunc("/v1/ledger/mint", s.handleLedgerMint)
	mux.HandleFunc("/v1/ledger/balance", s.handleLedgerBalance)
	mux.HandleFunc("/v1/history/totals", s.handleHistoryTotals)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/ws", s.hub)

	return mux
}

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, engine.ErrEmptyName),
		errors.Is(err, engine.ErrEmptySymbol),
		errors.Is(err, engine.ErrInvalidStartTime),
		errors.Is(err, engine.ErrInvalidEndTime),
		errors.Is(err, engine.ErrInvalidTierParams),
		errors.Is(err, engine.ErrNoPaymentMethod):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrTokenNotActive),
		errors.Is(err, engine.ErrStoNotActive),
		errors.Is(err, engine.ErrInvalidStatusTransition),
		errors.Is(err, engine.ErrOfferingExpired),
		errors.Is(err, engine.ErrOfferingSoldOut),
		errors.Is(err, engine.ErrOutsideOfferingWindow),
		errors.Is(err, engine.ErrNotAccredited),
		errors.Is(err, engine.ErrPaymentMethodNotAccepted),
		errors.Is(err, engine.ErrInvestmentOutOfRange),
		errors.Is(err, engine.ErrInsufficientTierInventory),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

// tokenResponse is the JSON view of a token config.
type tokenResponse struct {
	Address        string `json:"address"`
	Authority      string `json:"authority"`
	Mint           string `json:"mint"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	Details        string `json:"details,omitempty"`
	Decimals       uint8  `json:"decimals"`
	DocumentHash   string `json:"document_hash,omitempty"`
	TreasuryWallet string `json:"treasury_wallet"`
	Status         string `json:"status"`
	Version        int64  `json:"version"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

func toTokenResponse(c *domain.TokenConfig) tokenResponse {
	return tokenResponse{
		Address:        c.Address,
		Authority:      c.Authority,
		Mint:           c.Mint,
		Name:           c.Name,
		Symbol:         c.Symbol,
		Details:        c.Details,
		Decimals:       c.Decimals,
		DocumentHash:   c.DocumentHash,
		TreasuryWallet: c.TreasuryWallet,
		Status:         c.Status.String(),
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type createTokenRequest struct {
	Authority      string `json:"authority"`
	Mint           string `json:"mint"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	Details        string `json:"details"`
	Divisible      bool   `json:"divisible"`
	TreasuryWallet string `json:"treasury_wallet"`
	DocumentHash   string `json:"document_hash"`
}

// handleTokens creates a token on POST, fetches one by mint on GET.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createTokenRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := s.engine.CreateSecurityToken(r.Context(), domain.TokenParams{
			Authority:      req.Authority,
			Mint:           req.Mint,
			Name:           req.Name,
			Symbol:         req.Symbol,
			Details:        req.Details,
			Divisible:      req.Divisible,
			TreasuryWallet: req.TreasuryWallet,
			DocumentHash:   req.DocumentHash,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTokenResponse(c))

	case http.MethodGet:
		mint := r.URL.Query().Get("mint")
		if mint == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mint query parameter is required"})
			return
		}
		c, err := s.engine.GetToken(r.Context(), mint)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTokenResponse(c))

	default:
		methodNotAllowed(w)
	}
}

type transitionRequest struct {
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
}

func (s *Server) handleActivateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req transitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.engine.ActivateToken(r.Context(), req.Mint, req.Authority)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(c))
}

type tierResponse struct {
	Rate                 int64 `json:"rate"`
	RateDiscounted       int64 `json:"rate_discounted"`
	TotalTokens          int64 `json:"total_tokens"`
	TokensDiscounted     int64 `json:"tokens_discounted"`
	MinInvestment        int64 `json:"min_investment"`
	MaxInvestment        int64 `json:"max_investment"`
	TokensSold           int64 `json:"tokens_sold"`
	TokensSoldDiscounted int64 `json:"tokens_sold_discounted"`
}

type stoResponse struct {
	Address           string         `json:"address"`
	Authority         string         `json:"authority"`
	TokenMint         string         `json:"token_mint"`
	TreasuryWallet    string         `json:"treasury_wallet"`
	PaymentMints      []string       `json:"payment_mints"`
	PaymentEnabled    []bool         `json:"payment_enabled"`
	PaymentDecimals   uint8          `json:"payment_decimals"`
	Tiers             []tierResponse `json:"tiers"`
	CurrentTier       uint8          `json:"current_tier"`
	StartTime         int64          `json:"start_time"`
	EndTime           int64          `json:"end_time"`
	WhitelistRequired bool           `json:"whitelist_required"`
	Status            string         `json:"status"`
	TotalSold         int64          `json:"total_sold"`
	InvestorCount     int64          `json:"investor_count"`
	Version           int64          `json:"version"`
	CreatedAt         int64          `json:"created_at"`
	UpdatedAt         int64          `json:"updated_at"`
}

func toStoResponse(sto *domain.StoConfig) stoResponse {
	tiers := make([]tierResponse, len(sto.Tiers))
	for i, t := range sto.Tiers {
		tiers[i] = tierResponse{
			Rate:                 t.Rate,
			RateDiscounted:       t.RateDiscounted,
			TotalTokens:          t.TotalTokens,
			TokensDiscounted:     t.TokensDiscounted,
			MinInvestment:        t.MinInvestment,
			MaxInvestment:        t.MaxInvestment,
			TokensSold:           t.TokensSold,
			TokensSoldDiscounted: t.TokensSoldDiscounted,
		}
	}
	return stoResponse{
		Address:           sto.Address,
		Authority:         sto.Authority,
		TokenMint:         sto.TokenMint,
		TreasuryWallet:    sto.TreasuryWallet,
		PaymentMints:      sto.PaymentMints[:],
		PaymentEnabled:    sto.PaymentEnabled[:],
		PaymentDecimals:   sto.PaymentDecimals,
		Tiers:             tiers,
		CurrentTier:       sto.CurrentTier,
		StartTime:         sto.StartTime,
		EndTime:           sto.EndTime,
		WhitelistRequired: sto.WhitelistRequired,
		Status:            sto.Status.String(),
		TotalSold:         sto.TotalSold,
		InvestorCount:     sto.InvestorCount,
		Version:           sto.Version,
		CreatedAt:         sto.CreatedAt,
		UpdatedAt:         sto.UpdatedAt,
	}
}

type tierRequest struct {
	Rate             int64 `json:"rate"`
	RateDiscounted   int64 `json:"rate_discounted"`
	TotalTokens      int64 `json:"total_tokens"`
	TokensDiscounted int64 `json:"tokens_discounted"`
	MinInvestment    int64 `json:"min_investment"`
	MaxInvestment    int64 `json:"max_investment"`
}

type createStoRequest struct {
	Authority         string        `json:"authority"`
	TokenMint         string        `json:"token_mint"`
	TreasuryWallet    string        `json:"treasury_wallet"`
	PaymentMints      []string      `json:"payment_mints"`
	PaymentDecimals   uint8         `json:"payment_decimals"`
	Tiers             []tierRequest `json:"tiers"`
	StartTime         int64         `json:"start_time"`
	EndTime           int64         `json:"end_time"`
	WhitelistRequired bool          `json:"whitelist_required"`
}

// handleStos creates an offering on POST, fetches one by mint on GET.
func (s *Server) handleStos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createStoRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.PaymentMints) > domain.NumPaymentMints {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many payment mints"})
			return
		}
		if len(req.Tiers) > domain.MaxTiers {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many tiers"})
			return
		}

		p := domain.StoParams{
			Authority:         req.Authority,
			TokenMint:         req.TokenMint,
			TreasuryWallet:    req.TreasuryWallet,
			PaymentDecimals:   req.PaymentDecimals,
			NumTiers:          uint8(len(req.Tiers)),
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			WhitelistRequired: req.WhitelistRequired,
		}
		for i, m := range req.PaymentMints {
			p.PaymentMints[i] = m
			p.PaymentEnabled[i] = m != ""
		}
		p.Tiers = make([]domain.TierParams, len(req.Tiers))
		for i, t := range req.Tiers {
			p.Tiers[i] = domain.TierParams{
				Rate:             t.Rate,
				RateDiscounted:   t.RateDiscounted,
				TotalTokens:      t.TotalTokens,
				TokensDiscounted: t.TokensDiscounted,
				MinInvestment:    t.MinInvestment,
				MaxInvestment:    t.MaxInvestment,
			}
		}

		sto, err := s.engine.CreateSto(r.Context(), p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toStoResponse(sto))

	case http.MethodGet:
		mint := r.URL.Query().Get("mint")
		if mint == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mint query parameter is required"})
			return
		}
		sto, err := s.engine.GetSto(r.Context(), mint)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toStoResponse(sto))

	default:
		methodNotAllowed(w)
	}
}

// handleStoTransition adapts a lifecycle transition method into a handler.
func (s *Server) handleStoTransition(transition func(ctx context.Context, mint, authority string) (*domain.StoConfig, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req transitionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		sto, err := transition(r.Context(), req.Mint, req.Authority)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toStoResponse(sto))
	}
}

type receiptResponse struct {
	ReceiptID    string `json:"receipt_id"`
	StoAddress   string `json:"sto_address"`
	Investor     string `json:"investor"`
	TokenMint    string `json:"token_mint"`
	PaymentMint  string `json:"payment_mint"`
	AmountPaid   int64  `json:"amount_paid"`
	TokensIssued int64  `json:"tokens_issued"`
	Rate         int64  `json:"rate"`
	Discounted   bool   `json:"discounted"`
	Tier         uint8  `json:"tier"`
	Timestamp    int64  `json:"timestamp"`
}

func toReceiptResponse(rec *domain.InvestmentReceipt) receiptResponse {
	return receiptResponse{
		ReceiptID:    rec.ReceiptID,
		StoAddress:   rec.StoAddress,
		Investor:     rec.Investor,
		TokenMint:    rec.TokenMint,
		PaymentMint:  rec.PaymentMint,
		AmountPaid:   rec.AmountPaid,
		TokensIssued: rec.TokensIssued,
		Rate:         rec.Rate,
		Discounted:   rec.Discounted,
		Tier:         rec.Tier,
		Timestamp:    rec.Timestamp,
	}
}

type investHTTPRequest struct {
	Investor     string `json:"investor"`
	TokenMint    string `json:"token_mint"`
	PaymentMint  string `json:"payment_mint"`
	Amount       int64  `json:"amount"`
	UseDiscount  bool   `json:"use_discount"`
	IsAccredited bool   `json:"is_accredited"`
}

// handleInvest processes an investment. A version conflict is retried a few
// times before surfacing 409 to the caller.
func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req investHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ereq := engine.InvestRequest{
		Investor:     req.Investor,
		TokenMint:    req.TokenMint,
		PaymentMint:  req.PaymentMint,
		Amount:       req.Amount,
		UseDiscount:  req.UseDiscount,
		IsAccredited: req.IsAccredited,
	}

	var rec *domain.InvestmentReceipt
	var err error
	for attempt := 0; attempt < investRetries; attempt++ {
		rec, err = s.engine.Invest(r.Context(), ereq)
		if err == nil || !errors.Is(err, storage.ErrVersionConflict) {
			break
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptResponse(rec))
}

const investRetries = 3

// handleInvestments lists receipts by investor or by offering address.
func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	var (
		receipts []*domain.InvestmentReceipt
		err      error
	)
	switch {
	case r.URL.Query().Get("investor") != "":
		receipts, err = s.engine.InvestmentsByInvestor(r.Context(), r.URL.Query().Get("investor"))
	case r.URL.Query().Get("sto") != "":
		receipts, err = s.engine.InvestmentsBySto(r.Context(), r.URL.Query().Get("sto"))
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "investor or sto query parameter is required"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]receiptResponse, len(receipts))
	for i, rec := range receipts {
		out[i] = toReceiptResponse(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

type lockResponse struct {
	Address         string `json:"address"`
	Investor        string `json:"investor"`
	TokenMint       string `json:"token_mint"`
	TotalInvested   int64  `json:"total_invested"`
	TotalTokens     int64  `json:"total_tokens"`
	InvestmentCount int64  `json:"investment_count"`
	FirstInvestedAt int64  `json:"first_invested_at"`
	LastInvestedAt  int64  `json:"last_invested_at"`
}

func (s *Server) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	investor := r.URL.Query().Get("investor")
	mint := r.URL.Query().Get("mint")
	if investor == "" || mint == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "investor and mint query parameters are required"})
		return
	}

	lock, err := s.engine.GetLockStatus(r.Context(), investor, mint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lockResponse{
		Address:         lock.Address,
		Investor:        lock.Investor,
		TokenMint:       lock.TokenMint,
		TotalInvested:   lock.TotalInvested,
		TotalTokens:     lock.TotalTokens,
		InvestmentCount: lock.InvestmentCount,
		FirstInvestedAt: lock.FirstInvestedAt,
		LastInvestedAt:  lock.LastInvestedAt,
	})
}

type ledgerMintRequest struct {
	Mint    string `json:"mint"`
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// handleLedgerMint credits payment funds to an account. Intended for test
// and sandbox deployments where no external ledger feeds balances.
func (s *Server) handleLedgerMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req ledgerMintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ledger.MintTo(r.Context(), req.Mint, req.Account, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLedgerBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	account := r.URL.Query().Get("account")
	mint := r.URL.Query().Get("mint")
	if account == "" || mint == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account and mint query parameters are required"})
		return
	}

	balance, err := s.ledger.BalanceOf(r.Context(), account, mint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"mint":    mint,
		"balance": balance,
	})
}

// handleHistoryTotals serves aggregate volume for an offering from the
// analytics store.
func (s *Server) handleHistoryTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sto := r.URL.Query().Get("sto")
	if sto == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sto query parameter is required"})
		return
	}

	amountPaid, tokensIssued, err := s.history.Totals(r.Context(), sto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sto":           sto,
		"amount_paid":   amountPaid,
		"tokens_issued": tokensIssued,
	})
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	Backend       string `json:"backend"`
	StreamClients int    `json:"stream_clients"`
	StartedAt     int64  `json:"started_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	backend := "postgres"
	if s.useMemory {
		backend = "memory"
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Truncate(time.Second).String(),
		Backend:       backend,
		StreamClients: s.hub.ClientCount(),
		StartedAt:     s.started.Unix(),
	})
}
