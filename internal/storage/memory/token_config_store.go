package memory

import (
	"context"
	"sync"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// TokenConfigStore is an in-memory implementation of storage.TokenConfigStore.
type TokenConfigStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenConfig // keyed by derived address
}

// NewTokenConfigStore creates a new in-memory token config store.
func NewTokenConfigStore() *TokenConfigStore {
	return &TokenConfigStore{
		data: make(map[string]*domain.TokenConfig),
	}
}

// Compile-time interface check.
var _ storage.TokenConfigStore = (*TokenConfigStore)(nil)

// Insert adds a new token config. Returns ErrDuplicateKey if the address exists.
func (s *TokenConfigStore) Insert(_ context.Context, c *domain.TokenConfig) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.Address]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	configCopy := *c
	s.data[c.Address] = &configCopy
	return nil
}

// Get retrieves a token config by derived address.
func (s *TokenConfigStore) Get(_ context.Context, address string) (*domain.TokenConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	configCopy := *c
	return &configCopy, nil
}

// Update replaces the stored record if its version still equals expectedVersion.
func (s *TokenConfigStore) Update(_ context.Context, c *domain.TokenConfig, expectedVersion int64) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[c.Address]
	if !exists {
		return storage.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return storage.ErrVersionConflict
	}

	configCopy := *c
	configCopy.Version = expectedVersion + 1
	s.data[c.Address] = &configCopy
	return nil
}
