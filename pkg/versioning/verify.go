package versioning

import (
	"context"
	"fmt"
	"time"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// ViolationKind classifies a structural problem found by VerifyChainReport.
type ViolationKind string

const (
	ViolationCycle         ViolationKind = "cycle"
	ViolationMissingParent ViolationKind = "missing-parent"
	ViolationVersionOrder  ViolationKind = "version-order"
	ViolationMultipleRoots ViolationKind = "multiple-roots"
	ViolationDuplicateID   ViolationKind = "duplicate-id"
	ViolationForeignRecord ViolationKind = "foreign-record"
)

// Violation is one integrity problem attached to the inscription where it was found.
type Violation struct {
	InscriptionID string        `json:"inscriptionId"`
	Kind          ViolationKind `json:"kind"`
	Detail        string        `json:"detail"`
}

// VerifyReport is the outcome of a structural verification.
type VerifyReport struct {
	DocumentID string      `json:"documentId"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
	CheckedAt  time.Time   `json:"checkedAt"`
}

// VerifyChain checks that the chain is a single tree: no cycles, every parent
// present, version numbers strictly increasing from parent to child. It records
// the result in IsValid and LastVerified. The chain is loaded from the store on
// first use. Seals are not checked; see VerifySeals. A document without a
// chain, or whose chain cannot be loaded, is reported as invalid.
func (m *Manager) VerifyChain(ctx context.Context, documentID string) bool {
	report, ok := m.VerifyChainReport(ctx, documentID)
	return ok && report.Valid
}

// VerifyChainReport is VerifyChain with the list of violations. The boolean
// is false when there is no chain for the document.
func (m *Manager) VerifyChainReport(ctx context.Context, documentID string) (*VerifyReport, bool) {
	if validateDocumentID(documentID) != nil {
		return nil, false
	}
	d := m.document(documentID)
	snap, err := m.loadedSnapshot(ctx, d)
	if err != nil {
		m.logger.Warn("Failed to load chain for verification", "documentId", documentID, "error", err)
		return nil, false
	}
	if snap == nil {
		return nil, false
	}

	// The walk runs on the published snapshot without holding the writer lock.
	report := verifyStructure(snap.chain)
	report.CheckedAt = m.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if latest := d.snap.Load(); latest != snap {
		// A writer published a new chain during the walk.
		report = verifyStructure(latest.chain)
		report.CheckedAt = m.now()
	}

	m.metrics.RecordVerification(report.Valid)
	if !report.Valid {
		m.logger.Warn("Chain integrity violation",
			"documentId", documentID,
			"violations", len(report.Violations),
			"first", report.Violations[0].Detail)
	}

	chain, head := workingCopy(d)
	chain.IsValid = report.Valid
	chain.LastVerified = report.CheckedAt
	if err := m.commit(ctx, d, chain, head); err != nil {
		m.logger.Warn("Failed to persist verification result", "documentId", documentID, "error", err)
		d.snap.Store(&snapshot{chain: chain, head: head})
	}
	return report, true
}

// VerifySeals asks the configured SealVerifier to re-verify the chain's seals.
// Without a verifier every chain is accepted. The chain is loaded from the
// store on first use.
func (m *Manager) VerifySeals(ctx context.Context, documentID string) (bool, error) {
	if err := validateDocumentID(documentID); err != nil {
		return false, err
	}
	snap, err := m.loadedSnapshot(ctx, m.document(documentID))
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, fmt.Errorf("%w: %s", ErrChainNotFound, documentID)
	}
	if m.verifier == nil {
		return true, nil
	}
	ok, err := m.verifier.VerifySeal(ctx, snap.chain.Clone())
	if err != nil {
		return false, fmt.Errorf("failed to verify seals of %s: %w", documentID, err)
	}
	if !ok {
		m.logger.Warn("Seal verification failed", "documentId", documentID)
	}
	return ok, nil
}

// loadedSnapshot loads the chain on first use and returns the published snapshot.
func (m *Manager) loadedSnapshot(ctx context.Context, d *document) (*snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := m.ensureLoaded(ctx, d); err != nil {
		return nil, err
	}
	return d.snap.Load(), nil
}

// verifyStructure walks every record's parent links. Each record is visited
// once: a walk stops at a record already proven to reach a root.
func verifyStructure(c *types.DocumentVersionChain) *VerifyReport {
	report := &VerifyReport{DocumentID: c.DocumentID}
	add := func(id string, kind ViolationKind, format string, args ...any) {
		report.Violations = append(report.Violations, Violation{
			InscriptionID: id,
			Kind:          kind,
			Detail:        fmt.Sprintf(format, args...),
		})
	}

	byID := make(map[string]*types.DocumentInscription, len(c.Versions))
	var roots []string
	for _, v := range c.Versions {
		if _, dup := byID[v.ID]; dup {
			add(v.ID, ViolationDuplicateID, "inscription id %s appears more than once", v.ID)
			continue
		}
		byID[v.ID] = v
		if v.DocumentID != "" && c.DocumentID != "" && v.DocumentID != c.DocumentID {
			add(v.ID, ViolationForeignRecord, "inscription %s belongs to document %q", v.ID, v.DocumentID)
		}
		if v.IsGenesis() {
			roots = append(roots, v.ID)
		}
	}
	if len(roots) > 1 {
		for _, id := range roots[1:] {
			add(id, ViolationMultipleRoots, "inscription %s is a second genesis after %s", id, roots[0])
		}
	}

	for _, v := range c.Versions {
		if v.IsGenesis() {
			continue
		}
		parent, ok := byID[v.ParentID]
		if !ok {
			add(v.ID, ViolationMissingParent, "parent %s of inscription %s is not in the chain", v.ParentID, v.ID)
			continue
		}
		if v.Metadata.Version <= parent.Metadata.Version {
			add(v.ID, ViolationVersionOrder, "inscription %s has version %d, not above parent version %d",
				v.ID, v.Metadata.Version, parent.Metadata.Version)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(byID))
	for _, v := range c.Versions {
		var path []string
		for cur := byID[v.ID]; cur != nil; cur = byID[cur.ParentID] {
			if state[cur.ID] == done {
				break
			}
			if state[cur.ID] == visiting {
				add(cur.ID, ViolationCycle, "inscription %s is its own ancestor", cur.ID)
				break
			}
			state[cur.ID] = visiting
			path = append(path, cur.ID)
			if cur.IsGenesis() {
				break
			}
		}
		for _, id := range path {
			state[id] = done
		}
	}

	report.Valid = len(report.Violations) == 0
	return report
}
