package types

import (
	"context"
	"errors"
	"time"
)

// ErrSealRejected marks a sealing failure that will not succeed on retry, such
// as a credential the sealer cannot use. Sealers wrap it with fmt.Errorf.
var ErrSealRejected = errors.New("seal rejected")

// SealStage names a step reported by a Sealer while it commits an inscription.
type SealStage string

const (
	SealStagePreparing    SealStage = "preparing"
	SealStageSigning      SealStage = "signing"
	SealStageBroadcasting SealStage = "broadcasting"
	SealStageConfirming   SealStage = "confirming"
	SealStageSealed       SealStage = "sealed"
	SealStageFailed       SealStage = "failed"
)

// ProgressEvent is relayed to subscribers while an inscription is being sealed.
type ProgressEvent struct {
	DocumentID    string    `json:"documentId"`
	InscriptionID string    `json:"inscriptionId"`
	Stage         SealStage `json:"stage"`
	Message       string    `json:"message,omitempty"`
	Err           error     `json:"-"`
	At            time.Time `json:"at"`
}

// ProgressFunc receives progress from a Sealer. It must not block.
type ProgressFunc func(stage SealStage, message string)

// SealRequest is everything a Sealer needs to commit one inscription.
type SealRequest struct {
	Inscription *DocumentInscription
	// Parent is nil for a genesis inscription.
	Parent *DocumentInscription
	// AuthKey is the opaque signing credential supplied by the caller.
	AuthKey string
}

// Sealer permanently commits inscriptions (e.g. to the BSV blockchain).
type Sealer interface {
	Seal(ctx context.Context, req *SealRequest, progress ProgressFunc) (*SealConfirmation, error)
}

// SealVerifier re-verifies the seals of a chain. It may be a no-op.
type SealVerifier interface {
	VerifySeal(ctx context.Context, chain *DocumentVersionChain) (bool, error)
}

// ShareIssuer issues share tokens for a sealed inscription.
type ShareIssuer interface {
	IssueShares(ctx context.Context, inscription *DocumentInscription, totalShares, pricePerShare uint64) (*ShareData, error)
}

// ChainStore persists version chains by document id.
// Load returns (nil, nil) when no chain is stored for the id.
type ChainStore interface {
	Load(ctx context.Context, documentID string) (*DocumentVersionChain, error)
	Save(ctx context.Context, documentID string, chain *DocumentVersionChain) error
}
