package storage

import (
	"context"
	"sync"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// MemoryStorage keeps chains in process memory. Chains are deep copied on the
// way in and out.
type MemoryStorage struct {
	mu     sync.RWMutex
	chains map[string]*types.DocumentVersionChain
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{chains: make(map[string]*types.DocumentVersionChain)}
}

// Load returns a copy of the stored chain, or nil when none is stored.
func (s *MemoryStorage) Load(_ context.Context, documentID string) (*types.DocumentVersionChain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chains[documentID].Clone(), nil
}

// Save stores a copy of chain, replacing any previous one.
func (s *MemoryStorage) Save(_ context.Context, documentID string, chain *types.DocumentVersionChain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[documentID] = chain.Clone()
	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close(_ context.Context) error {
	return nil
}
