// Package storage provides ChainStore implementations for document version
// chains: an in-memory store, an on-device LevelDB store, a MongoDB store and
// an S3 backup store.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// Store is a ChainStore that holds resources until closed.
type Store interface {
	types.ChainStore
	Close(ctx context.Context) error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendLevelDB Backend = "leveldb"
	BackendMongo   Backend = "mongo"
	BackendS3      Backend = "s3"
)

// Static errors for err113 compliance
var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrMissingSetting = errors.New("missing storage setting")
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend Backend

	LevelDBPath string

	MongoURI      string
	MongoDatabase string

	S3Bucket string
	S3Region string
	S3Prefix string
}

// Open creates the Store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStorage(), nil
	case BackendLevelDB:
		if opts.LevelDBPath == "" {
			return nil, fmt.Errorf("%w: leveldb path", ErrMissingSetting)
		}
		return NewLevelDBStorage(opts.LevelDBPath)
	case BackendMongo:
		if opts.MongoURI == "" || opts.MongoDatabase == "" {
			return nil, fmt.Errorf("%w: mongo uri and database", ErrMissingSetting)
		}
		return ConnectMongoStorage(ctx, opts.MongoURI, opts.MongoDatabase)
	case BackendS3:
		if opts.S3Bucket == "" {
			return nil, fmt.Errorf("%w: s3 bucket", ErrMissingSetting)
		}
		return NewS3StorageFromConfig(ctx, opts.S3Bucket, opts.S3Region, opts.S3Prefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
