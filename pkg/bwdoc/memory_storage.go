package bwdoc

import (
	"context"
	"slices"
	"sync"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// MemoryStorage is an in-process Storage used by the writer example and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []types.InscriptionRecord
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// EnsureIndexes is a no-op.
func (s *MemoryStorage) EnsureIndexes(_ context.Context) error {
	return nil
}

// StoreRecord replaces any record with the same outpoint.
func (s *MemoryStorage) StoreRecord(_ context.Context, record *types.InscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.DeleteFunc(s.records, func(r types.InscriptionRecord) bool {
		return r.Outpoint == record.Outpoint
	})
	s.records = append(s.records, *record)
	return nil
}

// DeleteRecord removes the record for an outpoint.
func (s *MemoryStorage) DeleteRecord(_ context.Context, outpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.DeleteFunc(s.records, func(r types.InscriptionRecord) bool {
		return r.Outpoint == outpoint
	})
	return nil
}

// HasOutpoint reports whether a record exists for the outpoint.
func (s *MemoryStorage) HasOutpoint(_ context.Context, outpoint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.records, func(r types.InscriptionRecord) bool {
		return r.Outpoint == outpoint
	}), nil
}

// Records returns a copy of every stored record in insertion order.
func (s *MemoryStorage) Records() []types.InscriptionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// FindRecord filters records the same way MongoStorage does.
func (s *MemoryStorage) FindRecord(_ context.Context, query types.InscriptionQuery) ([]types.UTXOReference, error) {
	return s.find(func(r types.InscriptionRecord) bool {
		return (query.DocumentID == nil || r.DocumentID == *query.DocumentID) &&
			(query.InscriptionID == nil || r.InscriptionID == *query.InscriptionID) &&
			(query.IdentityKey == nil || r.IdentityKey == *query.IdentityKey)
	}, query.Limit, query.Skip, query.SortOrder)
}

// FindAll returns every record with optional pagination.
func (s *MemoryStorage) FindAll(_ context.Context, limit, skip *int, sortOrder *types.SortOrder) ([]types.UTXOReference, error) {
	return s.find(func(types.InscriptionRecord) bool { return true }, limit, skip, sortOrder)
}

func (s *MemoryStorage) find(match func(types.InscriptionRecord) bool, limit, skip *int, sortOrder *types.SortOrder) ([]types.UTXOReference, error) {
	s.mu.RLock()
	matched := make([]types.InscriptionRecord, 0, len(s.records))
	for _, r := range s.records {
		if match(r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	asc := sortOrder != nil && *sortOrder == types.SortOrderAsc
	slices.SortStableFunc(matched, func(a, b types.InscriptionRecord) int {
		if asc {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if skip != nil && *skip > 0 {
		matched = matched[min(*skip, len(matched)):]
	}
	if limit != nil && *limit > 0 && *limit < len(matched) {
		matched = matched[:*limit]
	}

	results := make([]types.UTXOReference, 0, len(matched))
	for _, r := range matched {
		ref, err := parseOutpoint(r.Outpoint)
		if err != nil {
			return nil, err
		}
		results = append(results, ref)
	}
	return results, nil
}
