package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// MongoStorage keeps one document per chain in the "documentChains" collection.
type MongoStorage struct {
	client *mongo.Client
	chains *mongo.Collection
}

// chainRecord is the MongoDB document wrapping a chain
type chainRecord struct {
	DocumentID string                      `bson:"documentId"`
	Chain      *types.DocumentVersionChain `bson:"chain"`
	UpdatedAt  time.Time                   `bson:"updatedAt"`
}

// NewMongoStorage creates a MongoStorage on a connected database.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		chains: db.Collection("documentChains"),
	}
}

// ConnectMongoStorage connects to uri, ensures indexes and returns a storage
// that disconnects the client on Close.
func ConnectMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	s := NewMongoStorage(client.Database(database))
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique documentId index.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "documentId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.chains.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create indexes for document chains: %w", err)
	}
	return nil
}

// Load returns the stored chain, or nil when none is stored.
func (s *MongoStorage) Load(ctx context.Context, documentID string) (*types.DocumentVersionChain, error) {
	var record chainRecord
	err := s.chains.FindOne(ctx, bson.M{"documentId": documentID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find chain %s: %w", documentID, err)
	}
	return record.Chain, nil
}

// Save upserts the chain document.
func (s *MongoStorage) Save(ctx context.Context, documentID string, chain *types.DocumentVersionChain) error {
	record := chainRecord{
		DocumentID: documentID,
		Chain:      chain,
		UpdatedAt:  time.Now(),
	}
	_, err := s.chains.ReplaceOne(ctx,
		bson.M{"documentId": documentID},
		record,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save chain %s: %w", documentID, err)
	}
	return nil
}

// Close disconnects the client when the storage owns it.
func (s *MongoStorage) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
