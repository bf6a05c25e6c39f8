// Package inscription seals document versions on the BSV blockchain. A
// WalletSealer locks each version into a signed BWDOC PushDrop token funded by
// a BRC-100 wallet, and mints BWSHARE tokens for share issuance.
package inscription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-sdk/overlay"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/pushdrop"
	"github.com/bsv-blockchain/go-sdk/wallet"

	"github.com/bitcoin-writer/go-document-chain/pkg/bwdoc"
	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// TokenValue is the number of satoshis locked in each inscription or share token.
const TokenValue uint64 = 1

// Static error variables for err113 compliance
var (
	errWalletRequired       = errors.New("wallet is required")
	errSealRequestInvalid   = errors.New("seal request must carry an inscription")
	errAuthKeyMismatch      = errors.New("auth key does not match the wallet identity key")
	errOutputNotFound       = errors.New("token output not found in funded transaction")
	errInscriptionNotSealed = errors.New("inscription is not sealed")
	errTooManyShares        = errors.New("share count exceeds MaxSharesPerIssue")
	errNoShares             = errors.New("share count must be positive")
)

// Submitter hands a funded transaction to an overlay, e.g. bwdoc.Overlay or a
// remote overlay engine client.
type Submitter interface {
	Submit(ctx context.Context, tagged overlay.TaggedBEEF) error
}

// WalletSealer implements types.Sealer and types.ShareIssuer over a wallet.
type WalletSealer struct {
	wallet    wallet.Interface
	submitter Submitter
	logger    *slog.Logger
}

var (
	_ types.Sealer      = (*WalletSealer)(nil)
	_ types.ShareIssuer = (*WalletSealer)(nil)
)

// SealerOption configures a WalletSealer.
type SealerOption func(*WalletSealer)

// WithSubmitter submits every funded transaction to an overlay after creation.
func WithSubmitter(s Submitter) SealerOption {
	return func(w *WalletSealer) { w.submitter = s }
}

// WithSealerLogger sets the logger. Defaults to slog.Default().
func WithSealerLogger(l *slog.Logger) SealerOption {
	return func(w *WalletSealer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWalletSealer creates a sealer that funds tokens from wlt.
func NewWalletSealer(wlt wallet.Interface, opts ...SealerOption) (*WalletSealer, error) {
	if wlt == nil {
		return nil, errWalletRequired
	}
	s := &WalletSealer{
		wallet: wlt,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IdentityKey returns the wallet's identity public key.
func (s *WalletSealer) IdentityKey(ctx context.Context) (*ec.PublicKey, error) {
	res, err := s.wallet.GetPublicKey(ctx, wallet.GetPublicKeyArgs{IdentityKey: true}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get identity key: %w", err)
	}
	return res.PublicKey, nil
}

// Seal inscribes one version as a BWDOC token. req.AuthKey, when set, must be
// the hex identity key of the wallet; any other value is rejected without
// touching the wallet.
func (s *WalletSealer) Seal(ctx context.Context, req *types.SealRequest, progress types.ProgressFunc) (*types.SealConfirmation, error) {
	if req == nil || req.Inscription == nil {
		return nil, errSealRequestInvalid
	}
	if progress == nil {
		progress = func(types.SealStage, string) {}
	}
	ins := req.Inscription

	progress(types.SealStagePreparing, "deriving identity key")
	identity, err := s.IdentityKey(ctx)
	if err != nil {
		return nil, err
	}
	identityHex := utils.BytesToHex(identity.Compressed())
	if req.AuthKey != "" && req.AuthKey != identityHex {
		return nil, fmt.Errorf("%w: %w", types.ErrSealRejected, errAuthKeyMismatch)
	}

	token := bwdoc.NewInscriptionToken(identity.Compressed(), ins)
	if _, err := bwdoc.DecodeInscriptionToken(token.Fields()); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSealRejected, err)
	}

	progress(types.SealStageSigning, "signing inscription token")
	lockingScript, err := s.lock(ctx, token.Fields())
	if err != nil {
		return nil, err
	}

	progress(types.SealStageBroadcasting, "funding inscription transaction")
	tx, index, err := s.fund(ctx, lockingScript,
		fmt.Sprintf("Inscription of %s version %d", ins.DocumentID, ins.Metadata.Version),
		"Bitcoin Writer document inscription")
	if err != nil {
		return nil, err
	}
	txid := tx.TxID().String()

	progress(types.SealStageConfirming, "awaiting overlay admission of "+txid)
	if s.submitter != nil {
		if err := s.submit(ctx, tx); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Inscribed document version",
		"documentId", ins.DocumentID,
		"inscriptionId", ins.ID,
		"version", ins.Metadata.Version,
		"txid", txid)

	return &types.SealConfirmation{
		TxID:        txid,
		OutputIndex: index,
		Outpoint:    utils.FormatOutpoint(txid, index),
		ContentHash: utils.ContentHash(ins.Content),
		IdentityKey: identityHex,
	}, nil
}

// lock builds the signed PushDrop locking script for fields.
func (s *WalletSealer) lock(ctx context.Context, fields [][]byte) (*script.Script, error) {
	protocol, ok := utils.TokenProtocol(string(fields[0]))
	if !ok {
		return nil, fmt.Errorf("%w: unknown token %q", types.ErrSealRejected, fields[0])
	}
	pd := pushdrop.PushDrop{
		Wallet: s.wallet,
	}
	lockingScript, err := pd.Lock(
		ctx,
		fields,
		protocol,
		utils.TokenKeyID,
		wallet.Counterparty{Type: wallet.CounterpartyTypeAnyone},
		true, // forSelf
		true, // includeSignature
		pushdrop.LockBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create locking script: %w", err)
	}
	return lockingScript, nil
}

// fund creates a wallet action paying TokenValue to lockingScript and returns
// the transaction with the index of the token output.
func (s *WalletSealer) fund(ctx context.Context, lockingScript *script.Script, outputDescription, description string) (*transaction.Transaction, uint32, error) {
	result, err := s.wallet.CreateAction(ctx, wallet.CreateActionArgs{
		Outputs: []wallet.CreateActionOutput{{
			OutputDescription: outputDescription,
			Satoshis:          TokenValue,
			LockingScript:     lockingScript.Bytes(),
		}},
		Description: description,
	}, "")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create action: %w", err)
	}

	tx, err := transaction.NewTransactionFromBytes(result.Tx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create transaction from tx: %w", err)
	}

	// Wallets may add change outputs and reorder, so locate the token by script.
	want := lockingScript.Bytes()
	for i, out := range tx.Outputs {
		if out.LockingScript != nil && bytes.Equal(out.LockingScript.Bytes(), want) {
			return tx, uint32(i), nil //nolint:gosec // output counts fit in uint32
		}
	}
	return nil, 0, errOutputNotFound
}

func (s *WalletSealer) submit(ctx context.Context, tx *transaction.Transaction) error {
	beef, err := transaction.NewBeefFromTransaction(tx)
	if err != nil {
		return fmt.Errorf("failed to create BEEF from transaction: %w", err)
	}
	beefBytes, err := beef.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode BEEF: %w", err)
	}
	if err := s.submitter.Submit(ctx, overlay.TaggedBEEF{
		Beef:   beefBytes,
		Topics: []string{bwdoc.Topic},
	}); err != nil {
		return fmt.Errorf("failed to submit inscription to overlay: %w", err)
	}
	return nil
}
