// Package bwdoc implements the Bitcoin Writer overlay topic manager and lookup
// service. The topic manager admits outputs carrying signed BWDOC inscription
// tokens and the lookup service indexes them by document, inscription and author.
package bwdoc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-overlay-services/pkg/core/engine"
	"github.com/bsv-blockchain/go-sdk/overlay"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/pushdrop"

	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// TopicManager implements the engine.TopicManager interface for BWDOC tokens
type TopicManager struct {
	logger *slog.Logger
}

// Verify that TopicManager implements engine.TopicManager
var _ engine.TopicManager = (*TopicManager)(nil)

// NewTopicManager creates a new BWDOC topic manager. A nil logger uses slog.Default().
func NewTopicManager(logger *slog.Logger) *TopicManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicManager{logger: logger}
}

// IdentifyAdmissibleOutputs identifies which outputs should be admitted to the overlay
func (tm *TopicManager) IdentifyAdmissibleOutputs(ctx context.Context, beef []byte, _ map[uint32]*transaction.TransactionOutput) (overlay.AdmittanceInstructions, error) {
	tx, err := transaction.NewTransactionFromBEEF(beef)
	if err != nil {
		return overlay.AdmittanceInstructions{}, fmt.Errorf("failed to parse BEEF: %w", err)
	}

	return overlay.AdmittanceInstructions{
		OutputsToAdmit: tm.AdmissibleOutputs(ctx, tx),
	}, nil
}

// AdmissibleOutputs returns the indexes of tx outputs that carry a well formed,
// correctly signed BWDOC token.
func (tm *TopicManager) AdmissibleOutputs(ctx context.Context, tx *transaction.Transaction) []uint32 {
	var admit []uint32
	for i, output := range tx.Outputs {
		if tm.isValidInscriptionOutput(ctx, output) {
			admit = append(admit, uint32(i)) //nolint:gosec // output counts fit in uint32
		}
	}
	if len(admit) > 0 {
		tm.logger.Debug("Admitting BWDOC outputs", "txid", tx.TxID().String(), "outputs", admit)
	}
	return admit
}

// IdentifyNeededInputs identifies which inputs are needed for the transaction
func (tm *TopicManager) IdentifyNeededInputs(_ context.Context, _ []byte) ([]*transaction.Outpoint, error) {
	// Inscriptions are self-contained; admission never depends on prior outputs.
	return nil, nil
}

// GetDocumentation returns documentation specific to the BWDOC topic manager
func (tm *TopicManager) GetDocumentation() string {
	return TopicManagerDocumentation
}

// GetMetaData returns metadata associated with this topic manager
func (tm *TopicManager) GetMetaData() *overlay.MetaData {
	return &overlay.MetaData{
		Name:        "Bitcoin Writer Topic Manager",
		Description: "Manages BWDOC document inscription tokens.",
	}
}

func (tm *TopicManager) isValidInscriptionOutput(ctx context.Context, output *transaction.TransactionOutput) bool {
	if output == nil || output.LockingScript == nil {
		return false
	}
	result := pushdrop.Decode(output.LockingScript)
	if result == nil {
		return false
	}

	// The signature must be present as the trailing field.
	if len(result.Fields) != InscriptionFieldCount+1 {
		return false
	}
	if _, err := DecodeInscriptionToken(result.Fields); err != nil {
		tm.logger.Debug("Rejecting malformed BWDOC token", "error", err)
		return false
	}

	return utils.IsTokenSignatureCorrectlyLinked(ctx, result.LockingPublicKey, result.Fields)
}
