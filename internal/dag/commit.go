package dag

import "time"

// PostID identifies a single post on the remote host. IDs are opaque
// strings assigned by the host; plume never parses them.
type PostID = string

// Commit is one immutable version record in a file's history.
//
// A root commit has no parents. Every other commit currently carries
// exactly one parent: producers emit linear chains. Parents is a slice
// rather than a single ID so the schema can represent merge commits
// later without migration.
type Commit struct {
	// ID is the post ID of the commit's first (or only) segment.
	ID PostID

	// Parents lists the parent commit IDs in order. Empty for a root.
	Parents []PostID

	// Timestamp is when the commit was created.
	Timestamp time.Time

	// Hash is the blake3 digest of the commit's full logical payload,
	// not of any individual segment.
	Hash string

	// Author is the account that posted the commit.
	Author string

	// Mime describes the payload. Tombstone commits use TombstoneMime.
	Mime string

	// Size is the byte length of the full logical payload.
	Size int

	// IsHead is an informational flag mirrored from the index. The
	// authoritative head is always derived by Graph.FindHead; see the
	// store's SetHead for why this flag cannot be trusted on its own.
	IsHead bool
}

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// HasParent reports whether id appears in the commit's parent list.
func (c *Commit) HasParent(id PostID) bool {
	for _, p := range c.Parents {
		if p == id {
			return true
		}
	}
	return false
}

// ContentRef describes how one logical write maps onto the posts that
// physically carry it.
type ContentRef struct {
	// Chunks lists the segment post IDs in payload order.
	Chunks []PostID

	// Hash is the digest of the complete payload.
	Hash string

	// Size is the total payload length in bytes.
	Size int
}
