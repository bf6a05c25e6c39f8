// Package testwallet provides a deterministic in-memory wallet for tests. It
// signs with a real key deriver and turns CreateAction calls into unbroadcast
// transactions.
package testwallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/require"
)

// ErrActionFailed is returned by CreateAction when FailActions is set.
var ErrActionFailed = errors.New("create action failed")

// Wallet implements the parts of wallet.Interface used by PushDrop and the
// sealer. Calling any other method panics.
type Wallet struct {
	wallet.Interface

	keys *wallet.Wallet

	mu          sync.Mutex
	actions     []wallet.CreateActionArgs
	failActions bool
}

// New returns a wallet whose root key is derived from seed.
func New(t testing.TB, seed byte) *Wallet {
	t.Helper()
	raw := make([]byte, 32)
	raw[0] = seed
	key, _ := ec.PrivateKeyFromBytes(raw)
	keys, err := wallet.NewWallet(key)
	require.NoError(t, err)
	return &Wallet{keys: keys}
}

// IdentityKey returns the wallet's identity public key.
func (w *Wallet) IdentityKey(t testing.TB) *ec.PublicKey {
	t.Helper()
	res, err := w.keys.GetPublicKey(context.Background(), wallet.GetPublicKeyArgs{IdentityKey: true}, "")
	require.NoError(t, err)
	return res.PublicKey
}

// FailActions makes subsequent CreateAction calls fail.
func (w *Wallet) FailActions(fail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failActions = fail
}

// Actions returns the CreateAction calls seen so far.
func (w *Wallet) Actions() []wallet.CreateActionArgs {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]wallet.CreateActionArgs(nil), w.actions...)
}

func (w *Wallet) GetPublicKey(ctx context.Context, args wallet.GetPublicKeyArgs, originator string) (*wallet.GetPublicKeyResult, error) {
	return w.keys.GetPublicKey(ctx, args, originator)
}

func (w *Wallet) CreateSignature(ctx context.Context, args wallet.CreateSignatureArgs, originator string) (*wallet.CreateSignatureResult, error) {
	return w.keys.CreateSignature(ctx, args, originator)
}

// CreateAction builds a transaction spending a fake funding input into the
// requested outputs. Each call spends a different input, so txids differ.
func (w *Wallet) CreateAction(_ context.Context, args wallet.CreateActionArgs, _ string) (*wallet.CreateActionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failActions {
		return nil, ErrActionFailed
	}
	w.actions = append(w.actions, args)

	tx := Transaction(len(w.actions), args.Outputs)
	return &wallet.CreateActionResult{Tx: tx.Bytes()}, nil
}

// Transaction builds a transaction with one fake input, distinguished by n,
// and the given outputs.
func Transaction(n int, outputs []wallet.CreateActionOutput) *transaction.Transaction {
	var source chainhash.Hash
	source[0] = byte(n)
	source[1] = byte(n >> 8)

	tx := transaction.NewTransaction()
	tx.Inputs = append(tx.Inputs, &transaction.TransactionInput{
		SourceTXID:       &source,
		SourceTxOutIndex: 0,
		UnlockingScript:  &script.Script{},
		SequenceNumber:   0xffffffff,
	})
	for _, out := range outputs {
		locking := script.Script(out.LockingScript)
		tx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      out.Satoshis,
			LockingScript: &locking,
		})
	}
	return tx
}
