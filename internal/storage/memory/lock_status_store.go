package memory

import (
	"context"
	"sort"
	"sync"

	"estate-sto/internal/domain"
	"estate-sto/internal/storage"
)

// LockStatusStore is an in-memory implementation of storage.LockStatusStore.
// Writes happen only through the Committer in this package.
type LockStatusStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LockStatus // keyed by derived address
}

// NewLockStatusStore creates a new in-memory lock status store.
func NewLockStatusStore() *LockStatusStore {
	return &LockStatusStore{
		data: make(map[string]*domain.LockStatus),
	}
}

// Compile-time interface check.
var _ storage.LockStatusStore = (*LockStatusStore)(nil)

// Get retrieves a lock status by derived address.
func (s *LockStatusStore) Get(_ context.Context, address string) (*domain.LockStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	lockCopy := *l
	return &lockCopy, nil
}

// GetByMint retrieves all lock statuses for an offering's token mint.
func (s *LockStatusStore) GetByMint(_ context.Context, mint string) ([]*domain.LockStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LockStatus
	for _, l := range s.data {
		if l.TokenMint == mint {
			lockCopy := *l
			result = append(result, &lockCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FirstInvestedAt < result[j].FirstInvestedAt
	})

	return result, nil
}

// version returns the stored version, or (0, false) when the record does
// not exist.
func (s *LockStatusStore) version(address string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, exists := s.data[address]
	if !exists {
		return 0, false
	}
	return cur.Version, true
}

// put stores the lock with the given version.
func (s *LockStatusStore) put(l *domain.LockStatus, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCopy := *l
	lockCopy.Version = version
	s.data[l.Address] = &lockCopy
}
