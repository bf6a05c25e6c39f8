// Package versioning manages per-document version chains: a branching history
// of immutable inscriptions with a movable HEAD, optional sealing through an
// injected Sealer and structural integrity verification.
//
// A Manager is safe for concurrent use. Writers for one document are
// serialized; readers work on an immutable snapshot and never block writers.
package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitcoin-writer/go-document-chain/pkg/metrics"
	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// Manager owns the in-memory version chains of a session and coordinates the
// store, sealer and share issuer collaborators.
type Manager struct {
	store    types.ChainStore
	sealer   types.Sealer
	verifier types.SealVerifier
	issuer   types.ShareIssuer

	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() string
	sealTimeout time.Duration

	mu   sync.Mutex
	docs map[string]*document

	subMu   sync.RWMutex
	subs    map[uint64]func(types.ProgressEvent)
	nextSub uint64

	background sync.WaitGroup
}

// document is the per-document state. mu serializes writers; snap is the
// published, never mutated, view read by everyone else.
type document struct {
	id     string
	mu     sync.Mutex
	loaded bool
	snap   atomic.Pointer[snapshot]

	inflight map[string]*sealCall
	issuing  map[string]struct{}
	// unsaved is set while the published snapshot holds a seal or share
	// issuance the store rejected.
	unsaved bool
}

type snapshot struct {
	chain *types.DocumentVersionChain
	head  string
}

// NewManager creates a Manager. store may be nil for a purely in-memory
// session; sealer may be nil when inscriptions are never sealed.
func NewManager(store types.ChainStore, sealer types.Sealer, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		sealer:      sealer,
		logger:      slog.Default(),
		now:         time.Now,
		newID:       defaultIDGenerator,
		sealTimeout: DefaultSealTimeout,
		docs:        make(map[string]*document),
		subs:        make(map[uint64]func(types.ProgressEvent)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wait blocks until sealer calls abandoned by their callers have finished and
// their results have been reconciled.
func (m *Manager) Wait() {
	m.background.Wait()
}

func validateDocumentID(id string) error {
	if id == "" {
		return ErrDocumentIDRequired
	}
	if !utils.IsValidDocumentID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentID, id)
	}
	return nil
}

// document returns the state for id, creating it on first use.
func (m *Manager) document(id string) *document {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		d = &document{
			id:       id,
			inflight: make(map[string]*sealCall),
			issuing:  make(map[string]struct{}),
		}
		m.docs[id] = d
	}
	return d
}

// lookup returns the state for id without creating it.
func (m *Manager) lookup(id string) *document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id]
}

// current returns the published snapshot for id, or nil.
func (m *Manager) current(id string) *snapshot {
	d := m.lookup(id)
	if d == nil {
		return nil
	}
	return d.snap.Load()
}

// LoadChain loads the chain for documentID from the store and makes it the
// session's chain. HEAD is set to the record with the highest version number.
// It returns (nil, nil) when no chain exists for the id.
func (m *Manager) LoadChain(ctx context.Context, documentID string) (*types.DocumentVersionChain, error) {
	if err := validateDocumentID(documentID); err != nil {
		return nil, err
	}
	d := m.document(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := m.loadLocked(ctx, d); err != nil {
		return nil, err
	}
	snap := d.snap.Load()
	if snap == nil {
		return nil, nil
	}
	return snap.chain.Clone(), nil
}

// ensureLoaded reads the chain from the store once per document.
func (m *Manager) ensureLoaded(ctx context.Context, d *document) error {
	if d.loaded {
		return nil
	}
	return m.loadLocked(ctx, d)
}

func (m *Manager) loadLocked(ctx context.Context, d *document) error {
	if m.store == nil {
		d.loaded = true
		return nil
	}
	start := m.now()
	chain, err := m.store.Load(ctx, d.id)
	m.metrics.RecordStoreOperation("load", err, m.now().Sub(start))
	if err != nil {
		return fmt.Errorf("failed to load chain %s: %w", d.id, err)
	}
	if chain == nil {
		d.loaded = true
		return nil
	}
	for i, v := range chain.Versions {
		if v == nil {
			return fmt.Errorf("%w: chain %s has a null version at index %d", ErrCorruptChain, d.id, i)
		}
	}
	d.loaded = true
	if chain.DocumentID == "" {
		chain.DocumentID = d.id
	}
	recompute(chain)
	head := ""
	if h := highestVersion(chain); h != nil {
		head = h.ID
	}
	d.snap.Store(&snapshot{chain: chain, head: head})
	m.metrics.RecordChainLoaded()
	m.logger.Debug("Loaded document chain", "documentId", d.id, "versions", chain.TotalVersions, "head", head)
	return nil
}

// commit persists chain and publishes it with the given HEAD. The published
// snapshot is left untouched when the store rejects the chain.
func (m *Manager) commit(ctx context.Context, d *document, chain *types.DocumentVersionChain, head string) error {
	if m.store != nil {
		start := m.now()
		err := m.store.Save(ctx, d.id, chain)
		m.metrics.RecordStoreOperation("save", err, m.now().Sub(start))
		if err != nil {
			return fmt.Errorf("failed to save chain %s: %w", d.id, err)
		}
	}
	d.snap.Store(&snapshot{chain: chain, head: head})
	d.unsaved = false
	return nil
}

// keepUnsaved publishes chain after the store rejected it. Results that exist
// outside the session, such as an on-chain seal, must not be dropped.
func keepUnsaved(d *document, chain *types.DocumentVersionChain, head string) {
	d.snap.Store(&snapshot{chain: chain, head: head})
	d.unsaved = true
}

// flushLocked retries saving a snapshot kept by keepUnsaved.
func (m *Manager) flushLocked(ctx context.Context, d *document) error {
	snap := d.snap.Load()
	if !d.unsaved || snap == nil {
		return nil
	}
	if err := m.commit(ctx, d, snap.chain, snap.head); err != nil {
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	m.logger.Info("Persisted previously unsaved chain", "documentId", d.id)
	return nil
}

// workingCopy returns a mutable deep copy of the published chain, or a new
// empty chain, together with the current HEAD.
func workingCopy(d *document) (*types.DocumentVersionChain, string) {
	if snap := d.snap.Load(); snap != nil {
		return snap.chain.Clone(), snap.head
	}
	return &types.DocumentVersionChain{
		DocumentID:        d.id,
		Versions:          make([]*types.DocumentInscription, 0),
		PublishedVersions: make([]*types.DocumentInscription, 0),
	}, ""
}

// CreateVersion appends a new draft inscription parented to the current HEAD
// and moves HEAD to it. The version number is the parent's plus one, or 1 for
// the genesis record. The chain is created on first use. Caller supplied
// Metadata.Version and Metadata.CreatedAt are ignored.
func (m *Manager) CreateVersion(ctx context.Context, documentID, content string, metadata types.VersionMetadata) (*types.DocumentInscription, error) {
	if err := validateDocumentID(documentID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(metadata.Title) == "" {
		return nil, ErrTitleRequired
	}

	d := m.document(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := m.ensureLoaded(ctx, d); err != nil {
		return nil, err
	}
	chain, head := workingCopy(d)

	parent := chain.Find(head)
	if parent == nil && len(chain.Versions) > 0 {
		parent = highestVersion(chain)
	}

	inscription := &types.DocumentInscription{
		ID:         m.newID(),
		DocumentID: documentID,
		Content:    content,
		Metadata:   metadata,
		WordCount:  utils.WordCount(content),
	}
	if metadata.Tags != nil {
		inscription.Metadata.Tags = append([]string(nil), metadata.Tags...)
	}
	inscription.Metadata.Version = 1
	if parent != nil {
		inscription.ParentID = parent.ID
		inscription.Metadata.Version = parent.Metadata.Version + 1
	}
	inscription.Metadata.CreatedAt = m.now()

	chain.Versions = append(chain.Versions, inscription)
	recompute(chain)
	if err := m.commit(ctx, d, chain, inscription.ID); err != nil {
		return nil, err
	}

	m.metrics.RecordVersionCreated()
	m.logger.Info("Created document version",
		"documentId", documentID,
		"inscriptionId", inscription.ID,
		"version", inscription.Metadata.Version,
		"parentId", inscription.ParentID)
	return inscription.Clone(), nil
}

// Checkout moves HEAD to an existing inscription so the next CreateVersion
// branches from it. The chain is loaded from the store on first use. HEAD is
// session state and is not persisted.
func (m *Manager) Checkout(ctx context.Context, documentID, inscriptionID string) error {
	if err := validateDocumentID(documentID); err != nil {
		return err
	}
	d := m.document(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := m.ensureLoaded(ctx, d); err != nil {
		return err
	}
	snap := d.snap.Load()
	if snap == nil {
		return fmt.Errorf("%w: %s", ErrChainNotFound, documentID)
	}
	if snap.chain.Find(inscriptionID) == nil {
		return fmt.Errorf("%w: %s", ErrInscriptionNotFound, inscriptionID)
	}
	d.snap.Store(&snapshot{chain: snap.chain, head: inscriptionID})
	m.logger.Debug("Moved HEAD", "documentId", documentID, "head", inscriptionID)
	return nil
}
