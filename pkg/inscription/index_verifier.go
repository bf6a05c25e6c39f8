package inscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bitcoin-writer/go-document-chain/pkg/bwdoc"
	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// IndexVerifier implements types.SealVerifier against the BWDOC overlay index.
// A chain's seals verify when every sealed version is still indexed under its
// outpoint and its stored content still hashes to the sealed hash.
type IndexVerifier struct {
	storage bwdoc.Storage
	logger  *slog.Logger
}

var _ types.SealVerifier = (*IndexVerifier)(nil)

// NewIndexVerifier creates a verifier over index storage.
func NewIndexVerifier(storage bwdoc.Storage, logger *slog.Logger) *IndexVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexVerifier{storage: storage, logger: logger}
}

// VerifySeal checks every sealed version of chain. Drafts are ignored.
func (v *IndexVerifier) VerifySeal(ctx context.Context, chain *types.DocumentVersionChain) (bool, error) {
	if chain == nil {
		return true, nil
	}
	for _, ins := range chain.Versions {
		if !ins.Sealed() {
			continue
		}
		if ins.Confirmation.ContentHash != utils.ContentHash(ins.Content) {
			v.logger.Warn("Sealed content hash mismatch", "documentId", chain.DocumentID, "inscriptionId", ins.ID)
			return false, nil
		}
		indexed, err := v.storage.HasOutpoint(ctx, ins.Confirmation.Outpoint)
		if err != nil {
			return false, fmt.Errorf("failed to look up outpoint %s: %w", ins.Confirmation.Outpoint, err)
		}
		if !indexed {
			v.logger.Warn("Sealed inscription missing from index",
				"documentId", chain.DocumentID,
				"inscriptionId", ins.ID,
				"outpoint", ins.Confirmation.Outpoint)
			return false, nil
		}
	}
	return true, nil
}
