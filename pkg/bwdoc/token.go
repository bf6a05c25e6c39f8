package bwdoc

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// Static error variables for err113 compliance
var (
	errTokenFieldCount    = errors.New("invalid BWDOC token: unexpected field count")
	errTokenIdentifier    = errors.New("invalid BWDOC token: unexpected protocol identifier")
	errTokenIdentityKey   = errors.New("invalid BWDOC token: identity key is not a public key")
	errTokenDocumentID    = errors.New("invalid BWDOC token: bad document id")
	errTokenInscriptionID = errors.New("invalid BWDOC token: bad inscription id")
	errTokenVersion       = errors.New("invalid BWDOC token: version must be a positive integer")
	errTokenParentID      = errors.New("invalid BWDOC token: bad parent id")
	errTokenContentHash   = errors.New("invalid BWDOC token: content hash must be 32 bytes")
)

// InscriptionFieldCount is the number of BWDOC fields before the signature.
const InscriptionFieldCount = 7

// genesisParent stands in for an empty parent id. PushDrop encodes an empty
// field as OP_0, which decodes to a single zero byte and breaks the signature.
const genesisParent = "-"

// InscriptionToken is the data carried by a BWDOC PushDrop output:
//
//	[0] "BWDOC"
//	[1] identity key (compressed)
//	[2] document id
//	[3] inscription id
//	[4] version number, decimal
//	[5] parent inscription id, "-" for genesis
//	[6] SHA-256 of the content
//	[7] signature (added by PushDrop)
type InscriptionToken struct {
	IdentityKey   []byte
	DocumentID    string
	InscriptionID string
	Version       int
	ParentID      string
	ContentHash   []byte
}

// NewInscriptionToken describes an inscription owned by identityKey.
func NewInscriptionToken(identityKey []byte, inscription *types.DocumentInscription) *InscriptionToken {
	return &InscriptionToken{
		IdentityKey:   identityKey,
		DocumentID:    inscription.DocumentID,
		InscriptionID: inscription.ID,
		Version:       inscription.Metadata.Version,
		ParentID:      inscription.ParentID,
		ContentHash:   utils.ContentHashBytes(inscription.Content),
	}
}

// Fields returns the PushDrop fields to be signed and locked.
func (t *InscriptionToken) Fields() [][]byte {
	parent := t.ParentID
	if parent == "" {
		parent = genesisParent
	}
	return [][]byte{
		[]byte(utils.InscriptionTokenIdentifier),
		t.IdentityKey,
		[]byte(t.DocumentID),
		[]byte(t.InscriptionID),
		[]byte(strconv.Itoa(t.Version)),
		[]byte(parent),
		t.ContentHash,
	}
}

// Record converts the token into an index record for the given outpoint.
func (t *InscriptionToken) Record(outpoint string, createdAt time.Time) *types.InscriptionRecord {
	return &types.InscriptionRecord{
		Outpoint:      outpoint,
		IdentityKey:   utils.BytesToHex(t.IdentityKey),
		DocumentID:    t.DocumentID,
		InscriptionID: t.InscriptionID,
		Version:       t.Version,
		ParentID:      t.ParentID,
		ContentHash:   utils.BytesToHex(t.ContentHash),
		CreatedAt:     createdAt,
	}
}

// DecodeInscriptionToken parses decoded PushDrop fields, with or without the
// trailing signature. It checks shape only; signature linkage is checked by
// utils.IsTokenSignatureCorrectlyLinked.
func DecodeInscriptionToken(fields [][]byte) (*InscriptionToken, error) {
	if len(fields) != InscriptionFieldCount && len(fields) != InscriptionFieldCount+1 {
		return nil, fmt.Errorf("%w: got %d", errTokenFieldCount, len(fields))
	}
	if utils.UTFBytesToString(fields[0]) != utils.InscriptionTokenIdentifier {
		return nil, fmt.Errorf("%w: %q", errTokenIdentifier, fields[0])
	}
	if _, err := ec.ParsePubKey(fields[1]); err != nil {
		return nil, fmt.Errorf("%w: %w", errTokenIdentityKey, err)
	}

	token := &InscriptionToken{
		IdentityKey:   fields[1],
		DocumentID:    utils.UTFBytesToString(fields[2]),
		InscriptionID: utils.UTFBytesToString(fields[3]),
		ContentHash:   fields[6],
	}
	if !utils.IsValidDocumentID(token.DocumentID) {
		return nil, fmt.Errorf("%w: %q", errTokenDocumentID, token.DocumentID)
	}
	// Inscription ids follow the same charset rules as document ids.
	if !utils.IsValidDocumentID(token.InscriptionID) {
		return nil, fmt.Errorf("%w: %q", errTokenInscriptionID, token.InscriptionID)
	}

	version, err := strconv.Atoi(string(fields[4]))
	if err != nil || version < 1 {
		return nil, fmt.Errorf("%w: %q", errTokenVersion, fields[4])
	}
	token.Version = version

	if parent := string(fields[5]); parent != genesisParent {
		if !utils.IsValidDocumentID(parent) || parent == token.InscriptionID {
			return nil, fmt.Errorf("%w: %q", errTokenParentID, parent)
		}
		token.ParentID = parent
	}

	if len(token.ContentHash) != 32 {
		return nil, fmt.Errorf("%w: got %d", errTokenContentHash, len(token.ContentHash))
	}
	return token, nil
}
