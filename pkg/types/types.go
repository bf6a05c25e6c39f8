// Package types holds the data model shared by the version chain manager, its
// sealing collaborators and the overlay index.
package types

import (
	"time"
)

// VersionMetadata describes a single document version.
type VersionMetadata struct {
	Title        string    `json:"title" bson:"title" cbor:"title"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty" cbor:"description,omitempty"`
	Author       string    `json:"author" bson:"author" cbor:"author"`
	AuthorHandle string    `json:"authorHandle,omitempty" bson:"authorHandle,omitempty" cbor:"authorHandle,omitempty"`
	Genre        string    `json:"genre,omitempty" bson:"genre,omitempty" cbor:"genre,omitempty"`
	Tags         []string  `json:"tags,omitempty" bson:"tags,omitempty" cbor:"tags,omitempty"`
	IsPublished  bool      `json:"isPublished" bson:"isPublished" cbor:"isPublished"`
	IsPaid       bool      `json:"isPaid" bson:"isPaid" cbor:"isPaid"`
	Version      int       `json:"version" bson:"version" cbor:"version"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt" cbor:"createdAt"`
}

// SealConfirmation is the blockchain confirmation data returned by a Sealer.
// Its presence on an inscription is what makes the inscription sealed.
type SealConfirmation struct {
	TxID        string    `json:"txid" bson:"txid" cbor:"txid"`
	OutputIndex uint32    `json:"outputIndex" bson:"outputIndex" cbor:"outputIndex"`
	Outpoint    string    `json:"outpoint" bson:"outpoint" cbor:"outpoint"`
	ContentHash string    `json:"contentHash" bson:"contentHash" cbor:"contentHash"`
	IdentityKey string    `json:"identityKey,omitempty" bson:"identityKey,omitempty" cbor:"identityKey,omitempty"`
	BlockHeight uint32    `json:"blockHeight,omitempty" bson:"blockHeight,omitempty" cbor:"blockHeight,omitempty"`
	SealedAt    time.Time `json:"sealedAt" bson:"sealedAt" cbor:"sealedAt"`
}

// ShareData records a share-token issuance attached to a sealed inscription.
type ShareData struct {
	TotalShares   uint64    `json:"totalShares" bson:"totalShares" cbor:"totalShares"`
	PricePerShare uint64    `json:"pricePerShare" bson:"pricePerShare" cbor:"pricePerShare"`
	ShareIDs      []string  `json:"shareIds" bson:"shareIds" cbor:"shareIds"`
	TxID          string    `json:"txid,omitempty" bson:"txid,omitempty" cbor:"txid,omitempty"`
	IssuedAt      time.Time `json:"issuedAt" bson:"issuedAt" cbor:"issuedAt"`
}

// DocumentInscription is one version record of a document.
type DocumentInscription struct {
	ID           string            `json:"id" bson:"id" cbor:"id"`
	DocumentID   string            `json:"documentId" bson:"documentId" cbor:"documentId"`
	Content      string            `json:"content" bson:"content" cbor:"content"`
	Metadata     VersionMetadata   `json:"metadata" bson:"metadata" cbor:"metadata"`
	ParentID     string            `json:"parentId,omitempty" bson:"parentId,omitempty" cbor:"parentId,omitempty"`
	WordCount    int               `json:"wordCount" bson:"wordCount" cbor:"wordCount"`
	Confirmation *SealConfirmation `json:"confirmation,omitempty" bson:"confirmation,omitempty" cbor:"confirmation,omitempty"`
	Shares       *ShareData        `json:"shares,omitempty" bson:"shares,omitempty" cbor:"shares,omitempty"`
}

// Sealed reports whether the inscription has been committed by a Sealer.
func (d *DocumentInscription) Sealed() bool {
	return d.Confirmation != nil
}

// Tokenized reports whether share tokens were issued for a sealed inscription.
func (d *DocumentInscription) Tokenized() bool {
	return d.Sealed() && d.Shares != nil
}

// IsGenesis reports whether the inscription has no parent.
func (d *DocumentInscription) IsGenesis() bool {
	return d.ParentID == ""
}

// Clone returns a deep copy so callers can never mutate records held by a chain.
func (d *DocumentInscription) Clone() *DocumentInscription {
	if d == nil {
		return nil
	}
	c := *d
	if d.Metadata.Tags != nil {
		c.Metadata.Tags = append([]string(nil), d.Metadata.Tags...)
	}
	if d.Confirmation != nil {
		conf := *d.Confirmation
		c.Confirmation = &conf
	}
	if d.Shares != nil {
		shares := *d.Shares
		shares.ShareIDs = append([]string(nil), d.Shares.ShareIDs...)
		c.Shares = &shares
	}
	return &c
}

// DocumentVersionChain is the materialized view of all inscriptions of a document.
type DocumentVersionChain struct {
	DocumentID             string                 `json:"documentId" bson:"documentId" cbor:"documentId"`
	Versions               []*DocumentInscription `json:"versions" bson:"versions" cbor:"versions"`
	PublishedVersions      []*DocumentInscription `json:"publishedVersions" bson:"publishedVersions" cbor:"publishedVersions"`
	GenesisInscription     *DocumentInscription   `json:"genesisInscription,omitempty" bson:"genesisInscription,omitempty" cbor:"genesisInscription,omitempty"`
	LatestPublishedVersion *DocumentInscription   `json:"latestPublishedVersion,omitempty" bson:"latestPublishedVersion,omitempty" cbor:"latestPublishedVersion,omitempty"`
	TotalVersions          int                    `json:"totalVersions" bson:"totalVersions" cbor:"totalVersions"`
	TotalWordCount         int                    `json:"totalWordCount" bson:"totalWordCount" cbor:"totalWordCount"`
	CreationSpan           time.Duration          `json:"creationSpan" bson:"creationSpan" cbor:"creationSpan"`
	IsValid                bool                   `json:"isValid" bson:"isValid" cbor:"isValid"`
	LastVerified           time.Time              `json:"lastVerified" bson:"lastVerified" cbor:"lastVerified"`
}

// Find returns the inscription with the given id, or nil.
func (c *DocumentVersionChain) Find(id string) *DocumentInscription {
	for _, v := range c.Versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// Clone returns a deep copy of the chain. Derived views (published, genesis,
// latest published) are rebuilt to point into the copied versions.
func (c *DocumentVersionChain) Clone() *DocumentVersionChain {
	if c == nil {
		return nil
	}
	out := *c
	out.Versions = make([]*DocumentInscription, len(c.Versions))
	byID := make(map[string]*DocumentInscription, len(c.Versions))
	for i, v := range c.Versions {
		out.Versions[i] = v.Clone()
		byID[v.ID] = out.Versions[i]
	}
	remap := func(d *DocumentInscription) *DocumentInscription {
		if d == nil {
			return nil
		}
		if m, ok := byID[d.ID]; ok {
			return m
		}
		return d.Clone()
	}
	out.PublishedVersions = make([]*DocumentInscription, 0, len(c.PublishedVersions))
	for _, p := range c.PublishedVersions {
		out.PublishedVersions = append(out.PublishedVersions, remap(p))
	}
	out.GenesisInscription = remap(c.GenesisInscription)
	out.LatestPublishedVersion = remap(c.LatestPublishedVersion)
	return &out
}

// ChainStats is a pure summary computed over a chain snapshot.
type ChainStats struct {
	DocumentID                 string        `json:"documentId"`
	TotalVersions              int           `json:"totalVersions"`
	PublishedVersions          int           `json:"publishedVersions"`
	DraftVersions              int           `json:"draftVersions"`
	SealedVersions             int           `json:"sealedVersions"`
	TokenizedVersions          int           `json:"tokenizedVersions"`
	Leaves                     int           `json:"leaves"`
	TotalWordCount             int           `json:"totalWordCount"`
	AverageWordCount           float64       `json:"averageWordCount"`
	CreationSpan               time.Duration `json:"creationSpan"`
	AverageTimeBetweenVersions time.Duration `json:"averageTimeBetweenVersions"`
	GenesisDate                time.Time     `json:"genesisDate"`
	LatestPublishedVersion     int           `json:"latestPublishedVersion"`
	IsValid                    bool          `json:"isValid"`
	LastVerified               time.Time     `json:"lastVerified"`
}

// InscriptionRecord is an overlay index entry for a sealed inscription output.
type InscriptionRecord struct {
	Outpoint      string    `json:"outpoint" bson:"outpoint"`
	IdentityKey   string    `json:"identityKey" bson:"identityKey"`
	DocumentID    string    `json:"documentId" bson:"documentId"`
	InscriptionID string    `json:"inscriptionId" bson:"inscriptionId"`
	Version       int       `json:"version" bson:"version"`
	ParentID      string    `json:"parentId,omitempty" bson:"parentId,omitempty"`
	ContentHash   string    `json:"contentHash" bson:"contentHash"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// SortOrder is the ordering of lookup results by creation time.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// InscriptionQuery filters overlay index records.
type InscriptionQuery struct {
	FindAll       *bool      `json:"findAll,omitempty"`
	DocumentID    *string    `json:"documentId,omitempty"`
	InscriptionID *string    `json:"inscriptionId,omitempty"`
	IdentityKey   *string    `json:"identityKey,omitempty"`
	Limit         *int       `json:"limit,omitempty"`
	Skip          *int       `json:"skip,omitempty"`
	SortOrder     *SortOrder `json:"sortOrder,omitempty"`
}

// UTXOReference points at an admitted inscription output.
type UTXOReference struct {
	Txid        string `json:"txid"`
	OutputIndex int    `json:"outputIndex"`
}
