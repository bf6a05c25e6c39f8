package bwdoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

const recordsNamespace = "db." + RecordsCollection

func TestMongoStorage(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ensure indexes", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, s.EnsureIndexes(t.Context()))
		assert.Equal(mt, "createIndexes", mt.GetStartedEvent().CommandName)
	})

	mt.Run("store record", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		err := s.StoreRecord(t.Context(), &types.InscriptionRecord{
			Outpoint:   TxID + ".0",
			DocumentID: "doc1",
			CreatedAt:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(mt, err)
		assert.Equal(mt, "insert", mt.GetStartedEvent().CommandName)
	})

	mt.Run("store duplicate", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		err := s.StoreRecord(t.Context(), &types.InscriptionRecord{Outpoint: TxID + ".0"})
		require.Error(mt, err)
	})

	mt.Run("delete record", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})
		require.NoError(mt, s.DeleteRecord(t.Context(), TxID+".0"))
		assert.Equal(mt, "delete", mt.GetStartedEvent().CommandName)
	})

	mt.Run("find record", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, recordsNamespace, mtest.FirstBatch,
			bson.D{{Key: "outpoint", Value: TxID + ".1"}},
			bson.D{{Key: "outpoint", Value: TxID + ".0"}},
		))

		doc := "doc1"
		limit := 2
		refs, err := s.FindRecord(t.Context(), types.InscriptionQuery{DocumentID: &doc, Limit: &limit})
		require.NoError(mt, err)
		assert.Equal(mt, []types.UTXOReference{
			{Txid: TxID, OutputIndex: 1},
			{Txid: TxID, OutputIndex: 0},
		}, refs)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "find", started.CommandName)
		assert.Equal(mt, "doc1", started.Command.Lookup("filter", "documentId").StringValue())
		assert.Equal(mt, int64(2), started.Command.Lookup("limit").AsInt64())
	})

	mt.Run("find all rejects malformed outpoints", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, recordsNamespace, mtest.FirstBatch,
			bson.D{{Key: "outpoint", Value: "garbage"}},
		))
		_, err := s.FindAll(t.Context(), nil, nil, nil)
		require.ErrorIs(mt, err, errMalformedOutpoint)
	})

	mt.Run("has outpoint", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, recordsNamespace, mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(1)}},
		))
		ok, err := s.HasOutpoint(t.Context(), TxID+".0")
		require.NoError(mt, err)
		assert.True(mt, ok)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, recordsNamespace, mtest.FirstBatch))
		ok, err = s.HasOutpoint(t.Context(), TxID+".9")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}
