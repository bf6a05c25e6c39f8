package versioning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// SnapshotFormat identifies exported chain snapshots.
const SnapshotFormat = "bwriter-chain/v1"

// Snapshot is the serialized form produced by ExportChain.
type Snapshot struct {
	Format     string                      `json:"format"`
	ExportedAt time.Time                   `json:"exportedAt"`
	Head       string                      `json:"head,omitempty"`
	Chain      *types.DocumentVersionChain `json:"chain"`
}

// ExportChain serializes the full chain for backup. No validation is done. It
// returns (nil, nil) when the session has no chain for the document.
func (m *Manager) ExportChain(documentID string) ([]byte, error) {
	snap := m.current(documentID)
	if snap == nil {
		return nil, nil
	}
	data, err := json.Marshal(Snapshot{
		Format:     SnapshotFormat,
		ExportedAt: m.now(),
		Head:       snap.head,
		Chain:      snap.chain,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export chain %s: %w", documentID, err)
	}
	return data, nil
}

// ImportChain restores a snapshot produced by ExportChain into a document that
// has no versions yet. The snapshot must pass structural verification. Chains
// are never merged, so importing over an existing chain fails with
// ErrChainExists.
func (m *Manager) ImportChain(ctx context.Context, data []byte) (*types.DocumentVersionChain, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if snapshot.Format != SnapshotFormat {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSnapshot, snapshot.Format)
	}
	if snapshot.Chain == nil || len(snapshot.Chain.Versions) == 0 {
		return nil, fmt.Errorf("%w: no versions", ErrInvalidSnapshot)
	}
	chain := snapshot.Chain
	if err := validateDocumentID(chain.DocumentID); err != nil {
		return nil, err
	}
	for _, v := range chain.Versions {
		if v == nil {
			return nil, fmt.Errorf("%w: null version entry", ErrInvalidSnapshot)
		}
	}
	if report := verifyStructure(chain); !report.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSnapshot, report.Violations[0].Detail)
	}

	d := m.document(chain.DocumentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := m.ensureLoaded(ctx, d); err != nil {
		return nil, err
	}
	if snap := d.snap.Load(); snap != nil && len(snap.chain.Versions) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrChainExists, chain.DocumentID)
	}

	recompute(chain)
	chain.IsValid = true
	chain.LastVerified = m.now()
	head := snapshot.Head
	if chain.Find(head) == nil {
		head = highestVersion(chain).ID
	}
	if err := m.commit(ctx, d, chain, head); err != nil {
		return nil, err
	}
	m.logger.Info("Imported document chain", "documentId", chain.DocumentID, "versions", chain.TotalVersions)
	return chain.Clone(), nil
}
