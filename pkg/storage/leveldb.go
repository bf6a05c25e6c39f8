package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

const chainKeyPrefix = "chain/"

// LevelDBStorage keeps chains in an on-device LevelDB database, one
// CBOR-encoded value per document under the key "chain/<documentId>".
type LevelDBStorage struct {
	db *leveldb.DB
}

// NewLevelDBStorage opens or creates the database at path. A corrupted
// database is recovered before use.
func NewLevelDBStorage(path string) (*LevelDBStorage, error) {
	db, err := leveldb.OpenFile(path, nil)

	var corrupted *ldbErrors.ErrCorrupted
	if errors.As(err, &corrupted) {
		slog.Warn("LevelDB corruption detected", "path", path, "error", err)
		db, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to recover leveldb at %s: %w", path, err)
		}
		slog.Warn("LevelDB recovered from corruption", "path", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return NewLevelDBStorageFromDB(db), nil
}

// NewLevelDBStorageFromDB wraps an already opened database.
func NewLevelDBStorageFromDB(db *leveldb.DB) *LevelDBStorage {
	return &LevelDBStorage{db: db}
}

func chainKey(documentID string) []byte {
	return []byte(chainKeyPrefix + documentID)
}

// Load returns the stored chain, or nil when none is stored.
func (s *LevelDBStorage) Load(_ context.Context, documentID string) (*types.DocumentVersionChain, error) {
	data, err := s.db.Get(chainKey(documentID), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read chain %s: %w", documentID, err)
	}
	chain, err := unmarshalCBOR(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chain %s: %w", documentID, err)
	}
	return chain, nil
}

// Save overwrites the stored chain.
func (s *LevelDBStorage) Save(_ context.Context, documentID string, chain *types.DocumentVersionChain) error {
	data, err := marshalCBOR(chain)
	if err != nil {
		return fmt.Errorf("failed to encode chain %s: %w", documentID, err)
	}
	if err := s.db.Put(chainKey(documentID), data, nil); err != nil {
		return fmt.Errorf("failed to write chain %s: %w", documentID, err)
	}
	return nil
}

// DocumentIDs lists the ids of all stored chains in key order.
func (s *LevelDBStorage) DocumentIDs(_ context.Context) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(chainKeyPrefix)), nil)
	defer iter.Release()

	var ids []string
	for iter.Next() {
		ids = append(ids, string(iter.Key()[len(chainKeyPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate chains: %w", err)
	}
	return ids, nil
}

// Close closes the database.
func (s *LevelDBStorage) Close(_ context.Context) error {
	return s.db.Close()
}
