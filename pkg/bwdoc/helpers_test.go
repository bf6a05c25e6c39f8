package bwdoc

import (
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/pushdrop"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-writer/go-document-chain/internal/testwallet"
	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

const TxID = "bdf1e48e845a65ba8c139c9b94844de30716f38d53787ba0a435e8705c4216d5"

func sampleInscription() *types.DocumentInscription {
	return &types.DocumentInscription{
		ID:         "ins-2",
		DocumentID: "doc1",
		Content:    "Hello World",
		ParentID:   "ins-1",
		Metadata:   types.VersionMetadata{Title: "Doc", Version: 2},
	}
}

// lockToken builds a signed PushDrop locking script for fields the way the
// wallet sealer does.
func lockToken(t *testing.T, w *testwallet.Wallet, fields [][]byte) *script.Script {
	t.Helper()
	protocol, ok := utils.TokenProtocol(string(fields[0]))
	if !ok {
		protocol, _ = utils.TokenProtocol(utils.InscriptionTokenIdentifier)
	}
	s, err := (&pushdrop.PushDrop{Wallet: w}).Lock(
		t.Context(),
		fields,
		protocol,
		utils.TokenKeyID,
		wallet.Counterparty{Type: wallet.CounterpartyTypeAnyone},
		true,
		true,
		pushdrop.LockBefore,
	)
	require.NoError(t, err)
	return s
}

// signedInscriptionScript returns a valid BWDOC locking script for sampleInscription.
func signedInscriptionScript(t *testing.T, w *testwallet.Wallet) *script.Script {
	t.Helper()
	token := NewInscriptionToken(w.IdentityKey(t).Compressed(), sampleInscription())
	return lockToken(t, w, token.Fields())
}

// rebuildScript re-encodes decoded PushDrop fields under lockingKey without re-signing.
func rebuildScript(t *testing.T, lockingKey []byte, fields [][]byte) *script.Script {
	t.Helper()
	s := &script.Script{}
	require.NoError(t, s.AppendPushData(lockingKey))
	require.NoError(t, s.AppendOpcodes(script.OpCHECKSIG))
	for _, field := range fields {
		require.NoError(t, s.AppendPushData(field))
	}
	notYetDropped := len(fields)
	for notYetDropped > 1 {
		require.NoError(t, s.AppendOpcodes(script.Op2DROP))
		notYetDropped -= 2
	}
	if notYetDropped != 0 {
		require.NoError(t, s.AppendOpcodes(script.OpDROP))
	}
	return s
}
