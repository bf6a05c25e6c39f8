package bwdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsv-blockchain/go-overlay-services/pkg/core/engine"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/overlay"
	"github.com/bsv-blockchain/go-sdk/overlay/lookup"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/pushdrop"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// Constants for the Bitcoin Writer overlay
const (
	// Topic is the topic manager topic for BWDOC inscriptions
	Topic = "tm_bitcoin_writer"
	// Service is the lookup service identifier for BWDOC inscriptions
	Service = "ls_bitcoin_writer"
)

// Static error variables for err113 compliance
var (
	errPushDropDecodeFailed      = errors.New("failed to decode PushDrop locking script")
	errValidQueryMustBeProvided  = errors.New("a valid query must be provided")
	errLookupServiceNotSupported = errors.New("lookup service not supported")
	errInvalidStringQuery        = errors.New("invalid string query: only 'findAll' is supported")
	errQueryDocumentIDInvalid    = errors.New("query.documentId must be a non-empty string if provided")
	errQueryInscriptionIDInvalid = errors.New("query.inscriptionId must be a non-empty string if provided")
	errQueryIdentityKeyInvalid   = errors.New("query.identityKey must be a hex encoded compressed public key if provided")
	errQueryLimitInvalid         = errors.New("query.limit must be a positive number if provided")
	errQuerySkipInvalid          = errors.New("query.skip must be a non-negative number if provided")
	errQuerySortOrderInvalid     = errors.New("query.sortOrder must be 'asc' or 'desc' if provided")
)

// LookupService implements the BSV overlay LookupService interface for BWDOC
// inscriptions. Admitted outputs are indexed; spent or evicted ones are removed.
type LookupService struct {
	storage Storage
	now     func() time.Time
}

// Compile-time verification that LookupService implements engine.LookupService
var _ engine.LookupService = (*LookupService)(nil)

// NewLookupService creates a new BWDOC lookup service instance.
func NewLookupService(storage Storage) *LookupService {
	return &LookupService{
		storage: storage,
		now:     time.Now,
	}
}

// OutputAdmittedByTopic decodes an admitted BWDOC token and stores its index record.
func (s *LookupService) OutputAdmittedByTopic(ctx context.Context, payload *engine.OutputAdmittedByTopic) error {
	if payload.Topic != Topic {
		return nil
	}

	result := pushdrop.Decode(payload.LockingScript)
	if result == nil {
		return errPushDropDecodeFailed
	}

	token, err := DecodeInscriptionToken(result.Fields)
	if err != nil {
		return err
	}

	return s.storage.StoreRecord(ctx, token.Record(formatOutpoint(payload.Outpoint), s.now().UTC()))
}

// OutputSpent removes the record of a spent inscription output.
func (s *LookupService) OutputSpent(ctx context.Context, payload *engine.OutputSpent) error {
	if payload.Topic != Topic {
		return nil
	}
	return s.storage.DeleteRecord(ctx, formatOutpoint(payload.Outpoint))
}

// OutputEvicted removes the record of an evicted inscription output.
func (s *LookupService) OutputEvicted(ctx context.Context, outpoint *transaction.Outpoint) error {
	return s.storage.DeleteRecord(ctx, formatOutpoint(outpoint))
}

// OutputNoLongerRetainedInHistory is a no-op; the index keeps no history.
func (s *LookupService) OutputNoLongerRetainedInHistory(_ context.Context, _ *transaction.Outpoint, _ string) error {
	return nil
}

// OutputBlockHeightUpdated is a no-op; block heights are not indexed.
func (s *LookupService) OutputBlockHeightUpdated(_ context.Context, _ *chainhash.Hash, _ uint32, _ uint64) error {
	return nil
}

// Lookup answers the string query "findAll" or an InscriptionQuery object.
func (s *LookupService) Lookup(ctx context.Context, question *lookup.LookupQuestion) (*lookup.LookupAnswer, error) {
	if len(question.Query) == 0 {
		return nil, errValidQueryMustBeProvided
	}
	if question.Service != Service {
		return nil, fmt.Errorf("%w: expected '%s', got '%s'", errLookupServiceNotSupported, Service, question.Service)
	}

	var queryStr string
	if err := json.Unmarshal(question.Query, &queryStr); err == nil {
		if queryStr != "findAll" {
			return nil, fmt.Errorf("%w: got '%s'", errInvalidStringQuery, queryStr)
		}
		utxos, err := s.storage.FindAll(ctx, nil, nil, nil)
		if err != nil {
			return nil, err
		}
		return toLookupAnswer(utxos), nil
	}

	var query types.InscriptionQuery
	if err := json.Unmarshal(question.Query, &query); err != nil {
		return nil, fmt.Errorf("invalid query format: %w", err)
	}
	if err := validateQuery(&query); err != nil {
		return nil, fmt.Errorf("invalid query format: %w", err)
	}

	var (
		utxos []types.UTXOReference
		err   error
	)
	if query.FindAll != nil && *query.FindAll {
		utxos, err = s.storage.FindAll(ctx, query.Limit, query.Skip, query.SortOrder)
	} else {
		utxos, err = s.storage.FindRecord(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	return toLookupAnswer(utxos), nil
}

// GetDocumentation returns the service documentation.
func (s *LookupService) GetDocumentation() string {
	return LookupDocumentation
}

// GetMetaData returns the service metadata.
func (s *LookupService) GetMetaData() *overlay.MetaData {
	return &overlay.MetaData{
		Name:        "Bitcoin Writer Lookup Service",
		Description: "Provides lookup capabilities for BWDOC document inscriptions.",
	}
}

func validateQuery(query *types.InscriptionQuery) error {
	switch {
	case query.DocumentID != nil && *query.DocumentID == "":
		return errQueryDocumentIDInvalid
	case query.InscriptionID != nil && *query.InscriptionID == "":
		return errQueryInscriptionIDInvalid
	case query.IdentityKey != nil && !isIdentityKeyHex(*query.IdentityKey):
		return errQueryIdentityKeyInvalid
	case query.Limit != nil && *query.Limit < 0:
		return errQueryLimitInvalid
	case query.Skip != nil && *query.Skip < 0:
		return errQuerySkipInvalid
	case query.SortOrder != nil && *query.SortOrder != types.SortOrderAsc && *query.SortOrder != types.SortOrderDesc:
		return errQuerySortOrderInvalid
	}
	return nil
}

func isIdentityKeyHex(s string) bool {
	b, err := utils.HexToBytes(s)
	return err == nil && len(b) == 33
}

func formatOutpoint(outpoint *transaction.Outpoint) string {
	return utils.FormatOutpoint(outpoint.Txid.String(), outpoint.Index)
}

func toLookupAnswer(utxos []types.UTXOReference) *lookup.LookupAnswer {
	return &lookup.LookupAnswer{
		Type:   lookup.AnswerTypeFreeform,
		Result: utxos,
	}
}
