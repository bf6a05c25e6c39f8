package versioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// Static error variables for testing
var (
	errTestStore  = errors.New("store unavailable")
	errTestSealer = errors.New("broadcast failed")
	errTestIssuer = errors.New("insufficient funds")
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// MockSealer is a mock implementation of types.Sealer
type MockSealer struct {
	mock.Mock
}

func (m *MockSealer) Seal(ctx context.Context, req *types.SealRequest, progress types.ProgressFunc) (*types.SealConfirmation, error) {
	args := m.Called(ctx, req, progress)
	if fn, ok := args.Get(0).(func(context.Context, *types.SealRequest, types.ProgressFunc) (*types.SealConfirmation, error)); ok {
		return fn(ctx, req, progress)
	}
	conf, _ := args.Get(0).(*types.SealConfirmation)
	return conf, args.Error(1)
}

// MockShareIssuer is a mock implementation of types.ShareIssuer
type MockShareIssuer struct {
	mock.Mock
}

func (m *MockShareIssuer) IssueShares(ctx context.Context, inscription *types.DocumentInscription, totalShares, pricePerShare uint64) (*types.ShareData, error) {
	args := m.Called(ctx, inscription, totalShares, pricePerShare)
	if fn, ok := args.Get(0).(func(*types.DocumentInscription, uint64) *types.ShareData); ok {
		return fn(inscription, totalShares), args.Error(1)
	}
	data, _ := args.Get(0).(*types.ShareData)
	return data, args.Error(1)
}

// MockSealVerifier is a mock implementation of types.SealVerifier
type MockSealVerifier struct {
	mock.Mock
}

func (m *MockSealVerifier) VerifySeal(ctx context.Context, chain *types.DocumentVersionChain) (bool, error) {
	args := m.Called(ctx, chain)
	return args.Bool(0), args.Error(1)
}

// memStore keeps JSON copies of chains so tests can't share pointers with the manager.
type memStore struct {
	mu      sync.Mutex
	chains  map[string][]byte
	loadErr error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{chains: make(map[string][]byte)}
}

func (s *memStore) Load(_ context.Context, documentID string) (*types.DocumentVersionChain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	data, ok := s.chains[documentID]
	if !ok {
		return nil, nil
	}
	var chain types.DocumentVersionChain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

func (s *memStore) Save(_ context.Context, documentID string, chain *types.DocumentVersionChain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := json.Marshal(chain)
	if err != nil {
		return err
	}
	s.chains[documentID] = data
	s.saves++
	return nil
}

func (s *memStore) put(t *testing.T, chain *types.DocumentVersionChain) {
	t.Helper()
	require.NoError(t, s.Save(t.Context(), chain.DocumentID, chain))
}

func (s *memStore) failSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// fakeClock returns a fixed time that tests move explicitly.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("ins-%d", n)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(store types.ChainStore, sealer types.Sealer, opts ...Option) (*Manager, *fakeClock) {
	clock := newFakeClock()
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs()),
		WithLogger(quietLogger()),
	}
	return NewManager(store, sealer, append(base, opts...)...), clock
}

func meta(title string) types.VersionMetadata {
	return types.VersionMetadata{Title: title, Author: "alice"}
}

// confirmationFor builds the confirmation a sealer would return for req.
func confirmationFor(req *types.SealRequest) *types.SealConfirmation {
	txid := fmt.Sprintf("%064x", len(req.Inscription.ID)+req.Inscription.Metadata.Version)
	return &types.SealConfirmation{
		TxID:        txid,
		OutputIndex: 0,
		Outpoint:    txid + ".0",
		ContentHash: utils.ContentHash(req.Inscription.Content),
	}
}

// sealsSuccessfully configures the mock to confirm every request.
func sealsSuccessfully(s *MockSealer) *mock.Call {
	return s.On("Seal", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, req *types.SealRequest, progress types.ProgressFunc) (*types.SealConfirmation, error) {
			progress(types.SealStageBroadcasting, "broadcasting")
			return confirmationFor(req), nil
		})
}

// recorder collects progress events.
type recorder struct {
	mu     sync.Mutex
	events []types.ProgressEvent
}

func (r *recorder) listen(e types.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) stages() []types.SealStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.SealStage, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}
