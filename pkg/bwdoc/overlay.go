package bwdoc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bsv-blockchain/go-overlay-services/pkg/core/engine"
	"github.com/bsv-blockchain/go-sdk/overlay"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

var errInvalidTopicName = errors.New("invalid topic name")

// Overlay admits tagged BEEF into an in-process topic manager and lookup
// service pair. It stands in for an overlay engine when sealing locally.
type Overlay struct {
	topicManager  *TopicManager
	lookupService *LookupService
	logger        *slog.Logger
}

// NewOverlay wires a topic manager and lookup service over storage.
func NewOverlay(storage Storage, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{
		topicManager:  NewTopicManager(logger),
		lookupService: NewLookupService(storage),
		logger:        logger,
	}
}

// TopicManager returns the overlay's topic manager.
func (o *Overlay) TopicManager() *TopicManager { return o.topicManager }

// LookupService returns the overlay's lookup service.
func (o *Overlay) LookupService() *LookupService { return o.lookupService }

// Submit admits the BWDOC outputs of a tagged transaction. Submissions not
// tagged with Topic are ignored; malformed topic names are rejected.
func (o *Overlay) Submit(ctx context.Context, tagged overlay.TaggedBEEF) error {
	for _, topic := range tagged.Topics {
		if !utils.IsValidTopicOrServiceName(topic) || !strings.HasPrefix(topic, "tm_") {
			return fmt.Errorf("%w: %q", errInvalidTopicName, topic)
		}
	}
	if !slices.Contains(tagged.Topics, Topic) {
		return nil
	}
	tx, err := transaction.NewTransactionFromBEEF(tagged.Beef)
	if err != nil {
		return fmt.Errorf("failed to parse BEEF: %w", err)
	}
	_, err = o.Admit(ctx, tx)
	return err
}

// Admit runs tx through the topic manager and indexes every admitted output.
// It returns the admitted output indexes.
func (o *Overlay) Admit(ctx context.Context, tx *transaction.Transaction) ([]uint32, error) {
	admitted := o.topicManager.AdmissibleOutputs(ctx, tx)
	txid := tx.TxID()
	for _, index := range admitted {
		payload := &engine.OutputAdmittedByTopic{
			Topic:         Topic,
			Outpoint:      &transaction.Outpoint{Txid: *txid, Index: index},
			LockingScript: tx.Outputs[index].LockingScript,
		}
		if err := o.lookupService.OutputAdmittedByTopic(ctx, payload); err != nil {
			return nil, fmt.Errorf("failed to index output %d of %s: %w", index, txid, err)
		}
	}
	if len(admitted) > 0 {
		o.logger.Info("Indexed BWDOC outputs", "txid", txid.String(), "count", len(admitted))
	}
	return admitted, nil
}

// Spend removes an indexed output after it has been spent.
func (o *Overlay) Spend(ctx context.Context, outpoint *transaction.Outpoint) error {
	return o.lookupService.OutputSpent(ctx, &engine.OutputSpent{Topic: Topic, Outpoint: outpoint})
}
