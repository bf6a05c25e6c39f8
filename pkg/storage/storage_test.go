package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

var testTime = time.Date(2024, 3, 1, 12, 30, 15, 123456789, time.UTC)

// sampleChain builds a two-version chain with a sealed, tokenized genesis.
func sampleChain() *types.DocumentVersionChain {
	genesis := &types.DocumentInscription{
		ID:         "3f1c2a4e-77aa-4b0e-9c1d-0c7c3a9b8e21",
		DocumentID: "doc1",
		Content:    "<p>Hello world</p>",
		WordCount:  2,
		Metadata: types.VersionMetadata{
			Title:       "T",
			Author:      "alice",
			Tags:        []string{"fiction", "draft"},
			IsPublished: true,
			Version:     1,
			CreatedAt:   testTime,
		},
		Confirmation: &types.SealConfirmation{
			TxID:        "aa",
			Outpoint:    "aa.0",
			ContentHash: "beef",
			SealedAt:    testTime.Add(time.Minute),
		},
		Shares: &types.ShareData{
			TotalShares:   2,
			PricePerShare: 1000,
			ShareIDs:      []string{"aa.0/1", "aa.0/2"},
			IssuedAt:      testTime.Add(2 * time.Minute),
		},
	}
	second := &types.DocumentInscription{
		ID:         "7d6f0b3c-1111-4a2b-8c3d-5e6f7a8b9c0d",
		DocumentID: "doc1",
		Content:    "Hello again world",
		ParentID:   genesis.ID,
		WordCount:  3,
		Metadata: types.VersionMetadata{
			Title:     "T",
			Version:   2,
			CreatedAt: testTime.Add(time.Hour),
		},
	}
	return &types.DocumentVersionChain{
		DocumentID:         "doc1",
		Versions:           []*types.DocumentInscription{genesis, second},
		PublishedVersions:  []*types.DocumentInscription{genesis},
		GenesisInscription: genesis,
		TotalVersions:      2,
		TotalWordCount:     5,
		CreationSpan:       time.Hour,
		IsValid:            true,
		LastVerified:       testTime.Add(3 * time.Hour),
	}
}

// assertSameChain compares the persisted fields of two chains.
func assertSameChain(t *testing.T, expected, actual *types.DocumentVersionChain) {
	t.Helper()
	require.NotNil(t, actual)
	assert.Equal(t, expected.DocumentID, actual.DocumentID)
	assert.Equal(t, expected.TotalVersions, actual.TotalVersions)
	assert.Equal(t, expected.TotalWordCount, actual.TotalWordCount)
	assert.Equal(t, expected.CreationSpan, actual.CreationSpan)
	assert.Equal(t, expected.IsValid, actual.IsValid)
	assert.True(t, expected.LastVerified.Equal(actual.LastVerified))
	require.Len(t, actual.Versions, len(expected.Versions))

	for i, want := range expected.Versions {
		got := actual.Versions[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Content, got.Content)
		assert.Equal(t, want.ParentID, got.ParentID)
		assert.Equal(t, want.WordCount, got.WordCount)
		assert.Equal(t, want.Metadata.Version, got.Metadata.Version)
		assert.Equal(t, want.Metadata.Tags, got.Metadata.Tags)
		assert.True(t, want.Metadata.CreatedAt.Equal(got.Metadata.CreatedAt), "createdAt of %s", want.ID)
		assert.Equal(t, want.Sealed(), got.Sealed())
		assert.Equal(t, want.Tokenized(), got.Tokenized())
		if want.Sealed() {
			assert.Equal(t, want.Confirmation.Outpoint, got.Confirmation.Outpoint)
			assert.True(t, want.Confirmation.SealedAt.Equal(got.Confirmation.SealedAt))
		}
		if want.Tokenized() {
			assert.Equal(t, want.Shares.ShareIDs, got.Shares.ShareIDs)
			assert.Equal(t, want.Shares.PricePerShare, got.Shares.PricePerShare)
		}
	}
}

// exerciseStore runs the load/save contract every Store must satisfy.
func exerciseStore(t *testing.T, store types.ChainStore) {
	t.Helper()
	ctx := context.Background()

	missing, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	chain := sampleChain()
	require.NoError(t, store.Save(ctx, "doc1", chain))

	loaded, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	assertSameChain(t, chain, loaded)

	chain.Versions = chain.Versions[:1]
	chain.TotalVersions = 1
	require.NoError(t, store.Save(ctx, "doc1", chain))
	loaded, err = store.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Len(t, loaded.Versions, 1)

	other, err := store.Load(ctx, "doc2")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestMemoryStorage(t *testing.T) {
	exerciseStore(t, NewMemoryStorage())
}

func TestMemoryStorage_Isolation(t *testing.T) {
	store := NewMemoryStorage()
	chain := sampleChain()
	require.NoError(t, store.Save(t.Context(), "doc1", chain))

	chain.Versions[0].Content = "mutated after save"
	loaded, err := store.Load(t.Context(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello world</p>", loaded.Versions[0].Content)

	loaded.Versions[0].Metadata.Tags[0] = "mutated after load"
	again, err := store.Load(t.Context(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "fiction", again.Versions[0].Metadata.Tags[0])
	assert.NoError(t, store.Close(t.Context()))
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected error
	}{
		{"unknown backend", Options{Backend: "redis"}, ErrUnknownBackend},
		{"leveldb without path", Options{Backend: BackendLevelDB}, ErrMissingSetting},
		{"mongo without uri", Options{Backend: BackendMongo, MongoDatabase: "x"}, ErrMissingSetting},
		{"s3 without bucket", Options{Backend: BackendS3}, ErrMissingSetting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(t.Context(), tt.opts)
			require.ErrorIs(t, err, tt.expected)
		})
	}

	t.Run("memory by default", func(t *testing.T) {
		store, err := Open(t.Context(), Options{})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, store)
	})

	t.Run("leveldb", func(t *testing.T) {
		store, err := Open(t.Context(), Options{Backend: BackendLevelDB, LevelDBPath: t.TempDir()})
		require.NoError(t, err)
		defer store.Close(t.Context())
		exerciseStore(t, store)
	})
}
