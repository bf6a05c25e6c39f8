package bwdoc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// RecordsCollection is the MongoDB collection holding BWDOC index records.
const RecordsCollection = "inscriptionRecords"

var errMalformedOutpoint = errors.New("malformed outpoint")

// MongoStorage implements Storage on MongoDB. Records are keyed by outpoint and
// paginated by creation time.
type MongoStorage struct {
	db      *mongo.Database
	records *mongo.Collection
}

// NewMongoStorage constructs a MongoStorage on the provided database.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		db:      db,
		records: db.Collection(RecordsCollection),
	}
}

// EnsureIndexes creates a unique outpoint index and a document lookup index.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	outpointIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "outpoint", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	documentIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "documentId", Value: 1},
			{Key: "version", Value: 1},
		},
	}
	identityIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "identityKey", Value: 1}},
	}

	if _, err := s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{outpointIndex, documentIndex, identityIndex}); err != nil {
		return fmt.Errorf("failed to create indexes for inscription records: %w", err)
	}
	return nil
}

// StoreRecord inserts an index record.
func (s *MongoStorage) StoreRecord(ctx context.Context, record *types.InscriptionRecord) error {
	if _, err := s.records.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to store inscription record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record for an outpoint. Deleting an unknown outpoint is not an error.
func (s *MongoStorage) DeleteRecord(ctx context.Context, outpoint string) error {
	if _, err := s.records.DeleteOne(ctx, bson.M{"outpoint": outpoint}); err != nil {
		return fmt.Errorf("failed to delete inscription record: %w", err)
	}
	return nil
}

// HasOutpoint reports whether a record exists for the outpoint.
func (s *MongoStorage) HasOutpoint(ctx context.Context, outpoint string) (bool, error) {
	n, err := s.records.CountDocuments(ctx, bson.M{"outpoint": outpoint}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count inscription records: %w", err)
	}
	return n > 0, nil
}

// FindRecord finds records by document id, inscription id and identity key,
// with pagination and sorting by creation time (newest first by default).
func (s *MongoStorage) FindRecord(ctx context.Context, query types.InscriptionQuery) ([]types.UTXOReference, error) {
	filter := bson.M{}
	if query.DocumentID != nil {
		filter["documentId"] = *query.DocumentID
	}
	if query.InscriptionID != nil {
		filter["inscriptionId"] = *query.InscriptionID
	}
	if query.IdentityKey != nil {
		filter["identityKey"] = *query.IdentityKey
	}
	return s.find(ctx, filter, query.Limit, query.Skip, query.SortOrder)
}

// FindAll returns every record with optional pagination.
func (s *MongoStorage) FindAll(ctx context.Context, limit, skip *int, sortOrder *types.SortOrder) ([]types.UTXOReference, error) {
	return s.find(ctx, bson.M{}, limit, skip, sortOrder)
}

func (s *MongoStorage) find(ctx context.Context, filter bson.M, limit, skip *int, sortOrder *types.SortOrder) ([]types.UTXOReference, error) {
	findOpts := options.Find().SetProjection(bson.M{
		"outpoint":  1,
		"createdAt": 1,
	})

	direction := -1
	if sortOrder != nil && *sortOrder == types.SortOrderAsc {
		direction = 1
	}
	findOpts.SetSort(bson.M{"createdAt": direction})

	if skip != nil && *skip > 0 {
		findOpts.SetSkip(int64(*skip))
	}
	if limit != nil && *limit > 0 {
		findOpts.SetLimit(int64(*limit))
	}

	cursor, err := s.records.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find inscription records: %w", err)
	}
	defer cursor.Close(ctx)

	var results []types.UTXOReference
	for cursor.Next(ctx) {
		var record struct {
			Outpoint string `bson:"outpoint"`
		}
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode inscription record: %w", err)
		}
		ref, err := parseOutpoint(record.Outpoint)
		if err != nil {
			return nil, err
		}
		results = append(results, ref)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while finding inscription records: %w", err)
	}
	return results, nil
}

// parseOutpoint splits "<txid>.<index>".
func parseOutpoint(outpoint string) (types.UTXOReference, error) {
	i := strings.LastIndexByte(outpoint, '.')
	if i <= 0 {
		return types.UTXOReference{}, fmt.Errorf("%w: %q", errMalformedOutpoint, outpoint)
	}
	index, err := strconv.Atoi(outpoint[i+1:])
	if err != nil || index < 0 {
		return types.UTXOReference{}, fmt.Errorf("%w: %q", errMalformedOutpoint, outpoint)
	}
	return types.UTXOReference{Txid: outpoint[:i], OutputIndex: index}, nil
}
