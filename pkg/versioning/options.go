package versioning

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bitcoin-writer/go-document-chain/pkg/metrics"
	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// DefaultSealTimeout bounds a single sealer call when WithSealTimeout is not given.
const DefaultSealTimeout = 2 * time.Minute

// Option configures a Manager.
type Option func(*Manager)

// WithSealTimeout sets the upper bound for one sealer call. A timeout is
// reported as a retryable SealError.
func WithSealTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sealTimeout = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithSealVerifier sets the collaborator used by VerifySeals.
func WithSealVerifier(v types.SealVerifier) Option {
	return func(m *Manager) {
		m.verifier = v
	}
}

// WithShareIssuer sets the collaborator used by CreateShareTokens.
func WithShareIssuer(issuer types.ShareIssuer) Option {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// WithIDGenerator replaces the inscription id generator (random UUIDs by default).
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

func defaultIDGenerator() string {
	return uuid.NewString()
}
