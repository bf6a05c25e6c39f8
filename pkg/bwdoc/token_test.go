package bwdoc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-writer/go-document-chain/internal/testwallet"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

func TestInscriptionTokenFields(t *testing.T) {
	identity := testwallet.New(t, 42).IdentityKey(t).Compressed()

	t.Run("child inscription", func(t *testing.T) {
		token := NewInscriptionToken(identity, sampleInscription())
		fields := token.Fields()
		require.Len(t, fields, InscriptionFieldCount)
		assert.Equal(t, "BWDOC", string(fields[0]))
		assert.Equal(t, "2", string(fields[4]))
		assert.Equal(t, "ins-1", string(fields[5]))
		assert.Equal(t, utils.ContentHashBytes("Hello World"), fields[6])

		decoded, err := DecodeInscriptionToken(fields)
		require.NoError(t, err)
		assert.Equal(t, token, decoded)
	})

	t.Run("genesis uses a placeholder parent", func(t *testing.T) {
		ins := sampleInscription()
		ins.ParentID = ""
		ins.Metadata.Version = 1
		fields := NewInscriptionToken(identity, ins).Fields()
		assert.Equal(t, "-", string(fields[5]))

		decoded, err := DecodeInscriptionToken(fields)
		require.NoError(t, err)
		assert.Empty(t, decoded.ParentID)
	})

	t.Run("accepts a trailing signature", func(t *testing.T) {
		fields := append(NewInscriptionToken(identity, sampleInscription()).Fields(), []byte{0x30, 0x01})
		_, err := DecodeInscriptionToken(fields)
		assert.NoError(t, err)
	})

	t.Run("record", func(t *testing.T) {
		at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		record := NewInscriptionToken(identity, sampleInscription()).Record(TxID+".0", at)
		assert.Equal(t, TxID+".0", record.Outpoint)
		assert.Equal(t, utils.BytesToHex(identity), record.IdentityKey)
		assert.Equal(t, "doc1", record.DocumentID)
		assert.Equal(t, "ins-2", record.InscriptionID)
		assert.Equal(t, 2, record.Version)
		assert.Equal(t, "ins-1", record.ParentID)
		assert.Equal(t, utils.ContentHash("Hello World"), record.ContentHash)
		assert.Equal(t, at, record.CreatedAt)
	})
}

func TestDecodeInscriptionTokenErrors(t *testing.T) {
	identity := testwallet.New(t, 42).IdentityKey(t).Compressed()
	valid := func() [][]byte {
		return NewInscriptionToken(identity, sampleInscription()).Fields()
	}

	tests := []struct {
		name    string
		mutate  func([][]byte) [][]byte
		wantErr error
	}{
		{"too few fields", func(f [][]byte) [][]byte { return f[:5] }, errTokenFieldCount},
		{"too many fields", func(f [][]byte) [][]byte { return append(f, []byte("a"), []byte("b")) }, errTokenFieldCount},
		{"wrong identifier", func(f [][]byte) [][]byte { f[0] = []byte("SHIP"); return f }, errTokenIdentifier},
		{"identity not a key", func(f [][]byte) [][]byte { f[1] = []byte{0x01, 0x02}; return f }, errTokenIdentityKey},
		{"bad document id", func(f [][]byte) [][]byte { f[2] = []byte("../etc"); return f }, errTokenDocumentID},
		{"bad inscription id", func(f [][]byte) [][]byte { f[3] = []byte("a b"); return f }, errTokenInscriptionID},
		{"non numeric version", func(f [][]byte) [][]byte { f[4] = []byte("two"); return f }, errTokenVersion},
		{"zero version", func(f [][]byte) [][]byte { f[4] = []byte("0"); return f }, errTokenVersion},
		{"self parent", func(f [][]byte) [][]byte { f[5] = f[3]; return f }, errTokenParentID},
		{"short hash", func(f [][]byte) [][]byte { f[6] = f[6][:31]; return f }, errTokenContentHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInscriptionToken(tt.mutate(valid()))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// FuzzDecodeInscriptionToken checks that decoding never panics and that any
// accepted token re-encodes to the same fields.
func FuzzDecodeInscriptionToken(f *testing.F) {
	identity := []byte{
		0x02, 0x79, 0xbe, 0x66, 0x7e, 0xf9, 0xdc, 0xbb, 0xac, 0x55, 0xa0, 0x62, 0x95, 0xce, 0x87, 0x0b,
		0x07, 0x02, 0x9b, 0xfc, 0xdb, 0x2d, 0xce, 0x28, 0xd9, 0x59, 0xf2, 0x81, 0x5b, 0x16, 0xf8, 0x17, 0x98,
	}
	hash := utils.ContentHashBytes("Hello")
	f.Add("doc1", "ins-1", "1", "-", hash)
	f.Add("doc1", "ins-2", "2", "ins-1", hash)
	f.Add("", "ins-1", "1", "-", hash)
	f.Add("doc1", "ins-1", "-1", "-", hash)
	f.Add("doc1", "ins-1", "1", "ins-1", []byte{})

	f.Fuzz(func(t *testing.T, documentID, inscriptionID, version, parent string, contentHash []byte) {
		fields := [][]byte{
			[]byte(utils.InscriptionTokenIdentifier),
			identity,
			[]byte(documentID),
			[]byte(inscriptionID),
			[]byte(version),
			[]byte(parent),
			contentHash,
		}
		token, err := DecodeInscriptionToken(fields)
		if err != nil {
			return
		}
		reencoded := token.Fields()
		for i := range fields {
			if i == 4 {
				// "01" and "1" decode to the same version.
				continue
			}
			if !bytes.Equal(fields[i], reencoded[i]) {
				t.Errorf("field %d changed: %q -> %q", i, fields[i], reencoded[i])
			}
		}
	})
}
