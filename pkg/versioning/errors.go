package versioning

import (
	"errors"
	"fmt"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// Validation errors. All of them match ErrValidation with errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrDocumentIDRequired   = fmt.Errorf("%w: document id is required", ErrValidation)
	ErrInvalidDocumentID    = fmt.Errorf("%w: invalid document id", ErrValidation)
	ErrTitleRequired        = fmt.Errorf("%w: metadata title is required", ErrValidation)
	ErrInscriptionRequired  = fmt.Errorf("%w: inscription is required", ErrValidation)
	ErrConfirmationRequired = fmt.Errorf("%w: seal confirmation is required", ErrValidation)
	ErrInvalidShareCount    = fmt.Errorf("%w: total shares must be greater than zero", ErrValidation)
	ErrInvalidSnapshot      = fmt.Errorf("%w: invalid chain snapshot", ErrValidation)
	ErrUnsupportedSnapshot  = fmt.Errorf("%w: unsupported snapshot format", ErrValidation)
)

// State errors, defined as package-level variables for err113 compliance.
var (
	ErrInscriptionNotFound = errors.New("inscription not found")
	ErrChainNotFound       = errors.New("document chain not found")
	ErrChainExists         = errors.New("document chain already exists")
	ErrNotSealed           = errors.New("inscription is not sealed")
	ErrAlreadyTokenized    = errors.New("inscription already has share tokens")
	ErrSealMismatch        = errors.New("seal confirmation does not match inscription content")
	ErrSealFailed          = errors.New("sealing failed")
	ErrNoSealer            = errors.New("no sealer configured")
	ErrNoShareIssuer       = errors.New("no share issuer configured")
	ErrIssuanceInProgress  = errors.New("share issuance already in progress")
	ErrNotPersisted        = errors.New("change kept in session but not persisted")
	ErrCorruptChain        = errors.New("stored chain is corrupt")

	errEmptyConfirmation = errors.New("sealer returned no confirmation")
	errEmptyShares       = errors.New("share issuer returned no share ids")
)

// SealError is returned when an inscription could not be sealed. The draft it
// refers to is left unsealed in the chain unless Confirmation is set.
// errors.Is(err, ErrSealFailed) holds for every SealError.
type SealError struct {
	InscriptionID string
	// Retryable is true when calling InscribeVersion again may succeed.
	Retryable bool
	// Confirmation is set when the sealer succeeded but recording the result
	// failed. Pass it to ReconcileSeal rather than sealing again.
	Confirmation *types.SealConfirmation
	Err          error
}

func (e *SealError) Error() string {
	return fmt.Sprintf("failed to seal inscription %s: %v", e.InscriptionID, e.Err)
}

func (e *SealError) Unwrap() error {
	return e.Err
}

// Is makes every SealError match ErrSealFailed.
func (e *SealError) Is(target error) bool {
	return target == ErrSealFailed
}
