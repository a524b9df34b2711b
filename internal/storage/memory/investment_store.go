package memory

import (
	"context"
	"sort"
	"sync"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// InvestmentStore is an in-memory implementation of storage.InvestmentStore
// and storage.InvestmentHistoryStore. In memory mode the transactional
// record and the analytics mirror are the same store.
type InvestmentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.InvestmentReceipt // keyed by receipt_id
}

// NewInvestmentStore creates a new in-memory investment store.
func NewInvestmentStore() *InvestmentStore {
	return &InvestmentStore{
		data: make(map[string]*domain.InvestmentReceipt),
	}
}

// Compile-time interface checks.
var (
	_ storage.InvestmentStore        = (*InvestmentStore)(nil)
	_ storage.InvestmentHistoryStore = (*InvestmentStore)(nil)
)

// Insert appends a receipt. Returns ErrDuplicateKey if receipt_id exists.
func (s *InvestmentStore) Insert(_ context.Context, r *domain.InvestmentReceipt) error {
	if r == nil || r.ReceiptID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ReceiptID]; exists {
		return storage.ErrDuplicateKey
	}

	receiptCopy := *r
	s.data[r.ReceiptID] = &receiptCopy
	return nil
}

// GetByID retrieves a receipt by its ID.
func (s *InvestmentStore) GetByID(_ context.Context, receiptID string) (*domain.InvestmentReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[receiptID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	receiptCopy := *r
	return &receiptCopy, nil
}

// GetByInvestor retrieves all receipts for an investor, ordered by timestamp ASC.
func (s *InvestmentStore) GetByInvestor(_ context.Context, investor string) ([]*domain.InvestmentReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InvestmentReceipt
	for _, r := range s.data {
		if r.Investor == investor {
			receiptCopy := *r
			result = append(result, &receiptCopy)
		}
	}

	sortReceipts(result)
	return result, nil
}

// GetBySto retrieves all receipts for an offering, ordered by timestamp ASC.
func (s *InvestmentStore) GetBySto(_ context.Context, stoAddress string) ([]*domain.InvestmentReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InvestmentReceipt
	for _, r := range s.data {
		if r.StoAddress == stoAddress {
			receiptCopy := *r
			result = append(result, &receiptCopy)
		}
	}

	sortReceipts(result)
	return result, nil
}

// GetByTimeRange retrieves receipts for an offering within [start, end] (inclusive).
func (s *InvestmentStore) GetByTimeRange(_ context.Context, stoAddress string, start, end int64) ([]*domain.InvestmentReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InvestmentReceipt
	for _, r := range s.data {
		if r.StoAddress == stoAddress && r.Timestamp >= start && r.Timestamp <= end {
			receiptCopy := *r
			result = append(result, &receiptCopy)
		}
	}

	sortReceipts(result)
	return result, nil
}

// Totals returns the aggregate payment volume and tokens issued for an offering.
func (s *InvestmentStore) Totals(_ context.Context, stoAddress string) (amountPaid, tokensIssued int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.data {
		if r.StoAddress == stoAddress {
			amountPaid += r.AmountPaid
			tokensIssued += r.TokensIssued
		}
	}
	return amountPaid, tokensIssued, nil
}

// sortReceipts orders by timestamp ASC with receipt_id as tiebreaker.
func sortReceipts(receipts []*domain.InvestmentReceipt) {
	sort.Slice(receipts, func(i, j int) bool {
		if receipts[i].Timestamp != receipts[j].Timestamp {
			return receipts[i].Timestamp < receipts[j].Timestamp
		}
		return receipts[i].ReceiptID < receipts[j].ReceiptID
	})
}
