package bwdoc

import (
	"context"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// Storage defines the interface for BWDOC index storage operations
type Storage interface {
	// EnsureIndexes ensures the necessary indexes are created for the collections
	EnsureIndexes(ctx context.Context) error

	// StoreRecord stores an admitted inscription output
	StoreRecord(ctx context.Context, record *types.InscriptionRecord) error

	// DeleteRecord deletes the record of a spent or evicted output
	DeleteRecord(ctx context.Context, outpoint string) error

	// FindRecord finds records matching the query filters
	FindRecord(ctx context.Context, query types.InscriptionQuery) ([]types.UTXOReference, error)

	// FindAll returns all records tracked by the overlay
	FindAll(ctx context.Context, limit, skip *int, sortOrder *types.SortOrder) ([]types.UTXOReference, error)

	// HasOutpoint reports whether an output is currently indexed
	HasOutpoint(ctx context.Context, outpoint string) (bool, error)
}
