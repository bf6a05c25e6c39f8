package versioning

import (
	"context"
	"fmt"

	"github.com/bitcoin-writer/go-document-chain/pkg/metrics"
	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// CreateShareTokens issues totalShares share tokens for a sealed inscription
// and attaches the issuance to it. Drafts are rejected with ErrNotSealed and an
// inscription can be tokenized only once. A second call made while an issuance
// for the same inscription is running fails with ErrIssuanceInProgress.
//
// When the store rejects the tokenized chain the share ids are still returned,
// together with an error matching ErrNotPersisted, and the session keeps the
// issuance.
func (m *Manager) CreateShareTokens(ctx context.Context, inscription *types.DocumentInscription, totalShares, pricePerShare uint64) ([]string, error) {
	if inscription == nil {
		return nil, ErrInscriptionRequired
	}
	if totalShares == 0 {
		return nil, ErrInvalidShareCount
	}
	if m.issuer == nil {
		return nil, ErrNoShareIssuer
	}
	if err := validateDocumentID(inscription.DocumentID); err != nil {
		return nil, err
	}

	d := m.document(inscription.DocumentID)
	current, err := m.reserveIssuance(ctx, d, inscription.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		d.mu.Lock()
		delete(d.issuing, current.ID)
		d.mu.Unlock()
	}()

	// Issuance is network bound and runs without holding the document lock.
	shares, err := m.issuer.IssueShares(ctx, current, totalShares, pricePerShare)
	if err == nil && (shares == nil || len(shares.ShareIDs) == 0) {
		err = errEmptyShares
	}
	if err != nil {
		m.metrics.RecordShareIssuance(metrics.OutcomeFailure, totalShares)
		m.logger.Warn("Failed to issue shares", "documentId", current.DocumentID, "inscriptionId", current.ID, "error", err)
		return nil, fmt.Errorf("failed to issue shares for inscription %s: %w", current.ID, err)
	}

	attached, err := m.attachShares(ctx, d, current.ID, shares, totalShares, pricePerShare)
	if attached == nil {
		m.metrics.RecordShareIssuance(metrics.OutcomeFailure, totalShares)
		m.logger.Warn("Issued shares could not be attached",
			"documentId", current.DocumentID,
			"inscriptionId", current.ID,
			"txid", shares.TxID,
			"error", err)
		return nil, err
	}
	m.metrics.RecordShareIssuance(metrics.OutcomeSuccess, totalShares)
	m.logger.Info("Issued share tokens",
		"documentId", current.DocumentID,
		"inscriptionId", current.ID,
		"shares", totalShares,
		"pricePerShare", pricePerShare)
	return append([]string(nil), attached.ShareIDs...), err
}

// reserveIssuance checks that shares may be issued for the inscription and
// marks an issuance as running. The caller releases the mark.
func (m *Manager) reserveIssuance(ctx context.Context, d *document, inscriptionID string) (*types.DocumentInscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := m.ensureLoaded(ctx, d); err != nil {
		return nil, err
	}
	if err := m.flushLocked(ctx, d); err != nil {
		return nil, err
	}
	var current *types.DocumentInscription
	if snap := d.snap.Load(); snap != nil {
		current = snap.chain.Find(inscriptionID)
	}
	switch {
	case current == nil:
		return nil, fmt.Errorf("%w: %s in document %q", ErrInscriptionNotFound, inscriptionID, d.id)
	case !current.Sealed():
		return nil, fmt.Errorf("%w: %s", ErrNotSealed, inscriptionID)
	case current.Tokenized():
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTokenized, inscriptionID)
	}
	if _, running := d.issuing[inscriptionID]; running {
		return nil, fmt.Errorf("%w: %s", ErrIssuanceInProgress, inscriptionID)
	}
	d.issuing[inscriptionID] = struct{}{}
	return current.Clone(), nil
}

func (m *Manager) attachShares(ctx context.Context, d *document, inscriptionID string, shares *types.ShareData, totalShares, pricePerShare uint64) (*types.ShareData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	chain, head := workingCopy(d)
	current := chain.Find(inscriptionID)
	if current == nil {
		return nil, fmt.Errorf("%w: %s in document %q", ErrInscriptionNotFound, inscriptionID, d.id)
	}
	if current.Tokenized() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTokenized, inscriptionID)
	}

	data := *shares
	data.ShareIDs = append([]string(nil), shares.ShareIDs...)
	data.TotalShares = totalShares
	data.PricePerShare = pricePerShare
	if data.IssuedAt.IsZero() {
		data.IssuedAt = m.now()
	}
	current.Shares = &data
	recompute(chain)
	if err := m.commit(ctx, d, chain, head); err != nil {
		keepUnsaved(d, chain, head)
		m.logger.Warn("Share issuance kept in session only",
			"documentId", d.id,
			"inscriptionId", inscriptionID,
			"txid", data.TxID,
			"error", err)
		return &data, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return &data, nil
}
