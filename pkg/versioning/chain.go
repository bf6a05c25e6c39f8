package versioning

import (
	"time"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// recompute refreshes every derived field of the chain from its versions.
func recompute(c *types.DocumentVersionChain) {
	c.TotalVersions = len(c.Versions)
	c.TotalWordCount = 0
	c.PublishedVersions = make([]*types.DocumentInscription, 0)
	c.GenesisInscription = nil
	c.LatestPublishedVersion = nil
	c.CreationSpan = 0

	var first, last time.Time
	for _, v := range c.Versions {
		c.TotalWordCount += v.WordCount
		if v.IsGenesis() && c.GenesisInscription == nil {
			c.GenesisInscription = v
		}
		if v.Metadata.IsPublished {
			c.PublishedVersions = append(c.PublishedVersions, v)
			if c.LatestPublishedVersion == nil || v.Metadata.Version >= c.LatestPublishedVersion.Metadata.Version {
				c.LatestPublishedVersion = v
			}
		}
		created := v.Metadata.CreatedAt
		if first.IsZero() || created.Before(first) {
			first = created
		}
		if last.IsZero() || created.After(last) {
			last = created
		}
	}
	if len(c.Versions) > 1 {
		c.CreationSpan = last.Sub(first)
	}
}

// highestVersion returns the record with the highest version number. Ties go
// to the later insertion.
func highestVersion(c *types.DocumentVersionChain) *types.DocumentInscription {
	var best *types.DocumentInscription
	for _, v := range c.Versions {
		if best == nil || v.Metadata.Version >= best.Metadata.Version {
			best = v
		}
	}
	return best
}

func indexOf(c *types.DocumentVersionChain, id string) int {
	for i, v := range c.Versions {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// lineage returns the path from the root to the record with the given id. The
// walk stops at a missing parent or a cycle, so a broken chain yields a
// partial path instead of looping.
func lineage(c *types.DocumentVersionChain, id string) []*types.DocumentInscription {
	byID := make(map[string]*types.DocumentInscription, len(c.Versions))
	for _, v := range c.Versions {
		byID[v.ID] = v
	}
	var path []*types.DocumentInscription
	seen := make(map[string]bool)
	for cur := byID[id]; cur != nil && !seen[cur.ID]; cur = byID[cur.ParentID] {
		seen[cur.ID] = true
		path = append(path, cur)
		if cur.IsGenesis() {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// leaves returns the records no other record names as parent, in insertion order.
func leaves(c *types.DocumentVersionChain) []*types.DocumentInscription {
	hasChild := make(map[string]bool, len(c.Versions))
	for _, v := range c.Versions {
		if !v.IsGenesis() {
			hasChild[v.ParentID] = true
		}
	}
	var out []*types.DocumentInscription
	for _, v := range c.Versions {
		if !hasChild[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

func cloneAll(in []*types.DocumentInscription) []*types.DocumentInscription {
	if in == nil {
		return nil
	}
	out := make([]*types.DocumentInscription, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}
