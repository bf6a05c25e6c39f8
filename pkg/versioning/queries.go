package versioning

import (
	"time"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// Getters read the session's published snapshot. They never touch the store;
// call LoadChain first to bring a persisted chain into the session.

// Chain returns a copy of the document's chain.
func (m *Manager) Chain(documentID string) (*types.DocumentVersionChain, bool) {
	snap := m.current(documentID)
	if snap == nil {
		return nil, false
	}
	return snap.chain.Clone(), true
}

// Head returns the inscription HEAD points at.
func (m *Manager) Head(documentID string) (*types.DocumentInscription, bool) {
	snap := m.current(documentID)
	if snap == nil {
		return nil, false
	}
	v := snap.chain.Find(snap.head)
	if v == nil {
		return nil, false
	}
	return v.Clone(), true
}

// GetVersion returns the inscription with the given version number. Branches
// can reuse a number, so the path from the genesis record to HEAD is searched
// first and the first match in insertion order is used otherwise.
func (m *Manager) GetVersion(documentID string, versionNumber int) (*types.DocumentInscription, bool) {
	snap := m.current(documentID)
	if snap == nil {
		return nil, false
	}
	for _, v := range lineage(snap.chain, snap.head) {
		if v.Metadata.Version == versionNumber {
			return v.Clone(), true
		}
	}
	for _, v := range snap.chain.Versions {
		if v.Metadata.Version == versionNumber {
			return v.Clone(), true
		}
	}
	return nil, false
}

// GetVersions returns every inscription carrying the version number, in
// insertion order.
func (m *Manager) GetVersions(documentID string, versionNumber int) []*types.DocumentInscription {
	snap := m.current(documentID)
	if snap == nil {
		return nil
	}
	var out []*types.DocumentInscription
	for _, v := range snap.chain.Versions {
		if v.Metadata.Version == versionNumber {
			out = append(out, v.Clone())
		}
	}
	return out
}

// GetLatestVersion returns the most recently created inscription. After
// branching this is not necessarily the highest version number; see
// LatestByVersionNumber.
func (m *Manager) GetLatestVersion(documentID string) (*types.DocumentInscription, bool) {
	snap := m.current(documentID)
	if snap == nil || len(snap.chain.Versions) == 0 {
		return nil, false
	}
	return snap.chain.Versions[len(snap.chain.Versions)-1].Clone(), true
}

// LatestByVersionNumber returns the inscription with the highest version
// number, preferring the later insertion on ties.
func (m *Manager) LatestByVersionNumber(documentID string) (*types.DocumentInscription, bool) {
	snap := m.current(documentID)
	if snap == nil {
		return nil, false
	}
	v := highestVersion(snap.chain)
	if v == nil {
		return nil, false
	}
	return v.Clone(), true
}

// Leaves returns the branch tips of the chain in insertion order.
func (m *Manager) Leaves(documentID string) []*types.DocumentInscription {
	snap := m.current(documentID)
	if snap == nil {
		return nil
	}
	return cloneAll(leaves(snap.chain))
}

// Lineage returns the ancestry of an inscription, genesis first and the
// inscription itself last.
func (m *Manager) Lineage(documentID, inscriptionID string) ([]*types.DocumentInscription, bool) {
	snap := m.current(documentID)
	if snap == nil || snap.chain.Find(inscriptionID) == nil {
		return nil, false
	}
	return cloneAll(lineage(snap.chain, inscriptionID)), true
}

// GetChainStats summarizes the current chain. It has no side effects.
func (m *Manager) GetChainStats(documentID string) (*types.ChainStats, bool) {
	snap := m.current(documentID)
	if snap == nil {
		return nil, false
	}
	return computeStats(snap.chain), true
}

func computeStats(c *types.DocumentVersionChain) *types.ChainStats {
	stats := &types.ChainStats{
		DocumentID:        c.DocumentID,
		TotalVersions:     c.TotalVersions,
		PublishedVersions: len(c.PublishedVersions),
		TotalWordCount:    c.TotalWordCount,
		CreationSpan:      c.CreationSpan,
		Leaves:            len(leaves(c)),
		IsValid:           c.IsValid,
		LastVerified:      c.LastVerified,
	}
	stats.DraftVersions = stats.TotalVersions - stats.PublishedVersions
	for _, v := range c.Versions {
		if v.Sealed() {
			stats.SealedVersions++
		}
		if v.Tokenized() {
			stats.TokenizedVersions++
		}
	}
	if stats.TotalVersions > 0 {
		stats.AverageWordCount = float64(stats.TotalWordCount) / float64(stats.TotalVersions)
	}
	stats.AverageTimeBetweenVersions = c.CreationSpan / time.Duration(max(1, stats.TotalVersions-1))
	if c.GenesisInscription != nil {
		stats.GenesisDate = c.GenesisInscription.Metadata.CreatedAt
	}
	if c.LatestPublishedVersion != nil {
		stats.LatestPublishedVersion = c.LatestPublishedVersion.Metadata.Version
	}
	return stats
}
