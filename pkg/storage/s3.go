package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// DefaultS3Prefix is the key prefix used when none is configured.
const DefaultS3Prefix = "chains"

// S3API is the part of *s3.Client used by S3Storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Storage keeps zstd-compressed JSON chains in an S3 bucket under
// "<prefix>/<documentId>.json.zst".
type S3Storage struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Storage creates an S3Storage on an existing client.
func NewS3Storage(client S3API, bucket, prefix string) *S3Storage {
	if prefix == "" {
		prefix = DefaultS3Prefix
	}
	return &S3Storage{client: client, bucket: bucket, prefix: prefix}
}

// NewS3StorageFromConfig builds the client from the default AWS credential chain.
func NewS3StorageFromConfig(ctx context.Context, bucket, region, prefix string) (*S3Storage, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3Storage(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// Key returns the object key of a document's chain.
func (s *S3Storage) Key(documentID string) string {
	return path.Join(s.prefix, documentID+".json.zst")
}

// Load returns the stored chain, or nil when the object does not exist.
func (s *S3Storage) Load(ctx context.Context, documentID string) (*types.DocumentVersionChain, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(documentID)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to download chain %s from S3: %w", documentID, err)
	}
	defer result.Body.Close()

	compressed, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain %s: %w", documentID, err)
	}
	data, err := decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress chain %s: %w", documentID, err)
	}
	var chain types.DocumentVersionChain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("failed to decode chain %s: %w", documentID, err)
	}
	return &chain, nil
}

// Save uploads the chain, replacing the previous object.
func (s *S3Storage) Save(ctx context.Context, documentID string, chain *types.DocumentVersionChain) error {
	data, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("failed to encode chain %s: %w", documentID, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(s.Key(documentID)),
		Body:            bytes.NewReader(compress(data)),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("zstd"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload chain %s to S3: %w", documentID, err)
	}
	return nil
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *S3Storage) Close(_ context.Context) error {
	return nil
}
