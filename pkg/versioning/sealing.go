package versioning

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bitcoin-writer/go-document-chain/pkg/metrics"
	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// sealCall is one running sealer invocation. Concurrent InscribeVersion calls
// for the same draft share it.
type sealCall struct {
	done     chan struct{}
	attached atomic.Int32

	result *types.DocumentInscription
	err    error
}

// InscribeVersion seals a draft through the configured Sealer and replaces the
// draft in the chain with the sealed record, keeping its id.
//
// Sealing an inscription that is already sealed returns the stored record
// without calling the sealer. On failure a *SealError is returned and the
// draft stays in the chain unchanged. If ctx ends before the sealer finishes,
// progress stops being relayed for this call and a retryable SealError is
// returned, but the sealer keeps running under the seal timeout and a late
// success is still applied to the chain.
func (m *Manager) InscribeVersion(ctx context.Context, inscription *types.DocumentInscription, authKey string) (*types.DocumentInscription, error) {
	if inscription == nil {
		return nil, ErrInscriptionRequired
	}
	if err := validateDocumentID(inscription.DocumentID); err != nil {
		return nil, err
	}
	d := m.document(inscription.DocumentID)

	d.mu.Lock()
	if err := m.ensureLoaded(ctx, d); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	snap := d.snap.Load()
	var current *types.DocumentInscription
	if snap != nil {
		current = snap.chain.Find(inscription.ID)
	}
	switch {
	case current == nil:
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s in document %q", ErrInscriptionNotFound, inscription.ID, inscription.DocumentID)
	case current.Sealed() && d.unsaved:
		err := m.flushLocked(ctx, d)
		d.mu.Unlock()
		if err != nil {
			return nil, &SealError{InscriptionID: current.ID, Retryable: true, Confirmation: confirmationCopy(current.Confirmation), Err: err}
		}
		return current.Clone(), nil
	case current.Sealed():
		d.mu.Unlock()
		m.logger.Debug("Inscription already sealed", "documentId", d.id, "inscriptionId", current.ID)
		return current.Clone(), nil
	case m.sealer == nil:
		d.mu.Unlock()
		return nil, ErrNoSealer
	}

	call, running := d.inflight[current.ID]
	if !running {
		call = &sealCall{done: make(chan struct{})}
		d.inflight[current.ID] = call
		call.attached.Add(1)
		req := &types.SealRequest{
			Inscription: current.Clone(),
			Parent:      snap.chain.Find(current.ParentID).Clone(),
			AuthKey:     authKey,
		}
		m.background.Add(1)
		go m.runSeal(context.WithoutCancel(ctx), d, req, call)
	} else {
		call.attached.Add(1)
	}
	d.mu.Unlock()

	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		return call.result.Clone(), nil
	case <-ctx.Done():
		call.attached.Add(-1)
		m.logger.Warn("Stopped waiting for seal", "documentId", d.id, "inscriptionId", current.ID, "error", ctx.Err())
		return nil, &SealError{InscriptionID: current.ID, Retryable: true, Err: ctx.Err()}
	}
}

// CreateAndInscribeVersion runs CreateVersion followed by InscribeVersion. The
// two steps are not atomic: when sealing fails the draft is returned together
// with the error and stays in the chain for a later retry.
func (m *Manager) CreateAndInscribeVersion(ctx context.Context, documentID, content string, metadata types.VersionMetadata, authKey string) (*types.DocumentInscription, error) {
	draft, err := m.CreateVersion(ctx, documentID, content, metadata)
	if err != nil {
		return nil, err
	}
	sealed, err := m.InscribeVersion(ctx, draft, authKey)
	if err != nil {
		return draft, err
	}
	return sealed, nil
}

// ReconcileSeal applies a confirmation obtained outside InscribeVersion, for
// example one that arrived after the session was restarted or one carried by a
// SealError. Applying a confirmation to an already sealed record is a no-op
// that returns the stored record. A confirmation whose content hash differs
// from the draft's content is rejected with ErrSealMismatch. When the store
// rejects the sealed chain the sealed record is returned together with an
// error matching ErrNotPersisted and the session keeps it sealed.
func (m *Manager) ReconcileSeal(ctx context.Context, documentID, inscriptionID string, confirmation *types.SealConfirmation) (*types.DocumentInscription, error) {
	if err := validateDocumentID(documentID); err != nil {
		return nil, err
	}
	if confirmation == nil {
		return nil, ErrConfirmationRequired
	}
	return m.applySeal(ctx, m.document(documentID), inscriptionID, confirmation)
}

func (m *Manager) runSeal(ctx context.Context, d *document, req *types.SealRequest, call *sealCall) {
	defer m.background.Done()

	id := req.Inscription.ID
	sealCtx, cancel := context.WithTimeout(ctx, m.sealTimeout)
	defer cancel()

	relay := func(stage types.SealStage, message string, err error) {
		if call.attached.Load() > 0 {
			m.emit(types.ProgressEvent{DocumentID: d.id, InscriptionID: id, Stage: stage, Message: message, Err: err})
		}
	}

	m.metrics.SealStarted()
	start := m.now()
	confirmation, err := m.sealer.Seal(sealCtx, req, func(stage types.SealStage, message string) {
		relay(stage, message, nil)
	})
	if err == nil && confirmation == nil {
		err = errEmptyConfirmation
	}

	var sealed *types.DocumentInscription
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil && errors.Is(sealCtx.Err(), context.DeadlineExceeded):
		outcome = metrics.OutcomeTimeout
		err = &SealError{
			InscriptionID: id,
			Retryable:     true,
			Err:           fmt.Errorf("sealer did not finish within %s: %w", m.sealTimeout, err),
		}
	case err != nil:
		outcome = metrics.OutcomeFailure
		err = &SealError{InscriptionID: id, Retryable: !errors.Is(err, types.ErrSealRejected), Err: err}
	default:
		sealed, err = m.applySeal(ctx, d, id, confirmation)
		switch {
		case errors.Is(err, ErrSealMismatch):
			outcome = metrics.OutcomeMismatch
			err = &SealError{InscriptionID: id, Retryable: false, Err: err}
		case err != nil:
			// The inscription exists on chain. Hand the confirmation back so a
			// retry reconciles it instead of sealing a second time.
			outcome = metrics.OutcomeFailure
			err = &SealError{InscriptionID: id, Retryable: true, Confirmation: confirmationCopy(confirmation), Err: err}
			sealed = nil
		}
	}
	m.metrics.RecordSeal(outcome, m.now().Sub(start))

	if err != nil {
		attrs := []any{"documentId", d.id, "inscriptionId", id, "error", err}
		if confirmation != nil {
			attrs = append(attrs, "txid", confirmation.TxID, "outpoint", confirmation.Outpoint)
		}
		m.logger.Warn("Failed to seal inscription", attrs...)
		relay(types.SealStageFailed, err.Error(), err)
	} else {
		m.logger.Info("Sealed inscription",
			"documentId", d.id,
			"inscriptionId", id,
			"txid", sealed.Confirmation.TxID,
			"outpoint", sealed.Confirmation.Outpoint)
		relay(types.SealStageSealed, sealed.Confirmation.Outpoint, nil)
	}

	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()

	call.result, call.err = sealed, err
	close(call.done)
}

// applySeal records confirmation on the draft with the given id.
func (m *Manager) applySeal(ctx context.Context, d *document, inscriptionID string, confirmation *types.SealConfirmation) (*types.DocumentInscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := m.ensureLoaded(ctx, d); err != nil {
		return nil, err
	}
	chain, head := workingCopy(d)
	i := indexOf(chain, inscriptionID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s in document %q", ErrInscriptionNotFound, inscriptionID, d.id)
	}
	current := chain.Versions[i]
	if current.Sealed() {
		if confirmation.TxID != "" && confirmation.TxID != current.Confirmation.TxID {
			m.logger.Warn("Ignoring second confirmation for sealed inscription",
				"documentId", d.id,
				"inscriptionId", inscriptionID,
				"sealedTxid", current.Confirmation.TxID,
				"ignoredTxid", confirmation.TxID)
		}
		return current.Clone(), m.flushLocked(ctx, d)
	}

	hash := utils.ContentHash(current.Content)
	if confirmation.ContentHash != "" && confirmation.ContentHash != hash {
		return nil, fmt.Errorf("%w: inscription %s has content hash %s, confirmation carries %s",
			ErrSealMismatch, inscriptionID, hash, confirmation.ContentHash)
	}

	applied := *confirmation
	applied.ContentHash = hash
	if applied.SealedAt.IsZero() {
		applied.SealedAt = m.now()
	}
	current.Confirmation = &applied
	recompute(chain)
	if err := m.commit(ctx, d, chain, head); err != nil {
		keepUnsaved(d, chain, head)
		m.logger.Warn("Sealed inscription kept in session only",
			"documentId", d.id,
			"inscriptionId", inscriptionID,
			"txid", applied.TxID,
			"outpoint", applied.Outpoint,
			"error", err)
		return current.Clone(), fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return current.Clone(), nil
}

func confirmationCopy(c *types.SealConfirmation) *types.SealConfirmation {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
