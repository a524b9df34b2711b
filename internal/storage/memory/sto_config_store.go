package memory

import (
	"context"
	"sync"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// StoConfigStore is an in-memory implementation of storage.StoConfigStore.
type StoConfigStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StoConfig // keyed by derived address
}

// NewStoConfigStore creates a new in-memory offering config store.
func NewStoConfigStore() *StoConfigStore {
	return &StoConfigStore{
		data: make(map[string]*domain.StoConfig),
	}
}

// Compile-time interface check.
var _ storage.StoConfigStore = (*StoConfigStore)(nil)

// Insert adds a new offering config. Returns ErrDuplicateKey if the address exists.
func (s *StoConfigStore) Insert(_ context.Context, cfg *domain.StoConfig) error {
	if cfg == nil || cfg.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[cfg.Address]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[cfg.Address] = cfg.Clone()
	return nil
}

// Get retrieves an offering by derived address.
func (s *StoConfigStore) Get(_ context.Context, address string) (*domain.StoConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return cfg.Clone(), nil
}

// Update replaces the stored record if its version still equals expectedVersion.
func (s *StoConfigStore) Update(_ context.Context, cfg *domain.StoConfig, expectedVersion int64) error {
	if cfg == nil || cfg.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[cfg.Address]
	if !exists {
		return storage.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return storage.ErrVersionConflict
	}

	next := cfg.Clone()
	next.Version = expectedVersion + 1
	s.data[cfg.Address] = next
	return nil
}
