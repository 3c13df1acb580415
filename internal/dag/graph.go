// Package dag holds the in-memory commit graph and its traversal
// operations: head resolution, ancestor walks, and fork detection.
//
// A Graph is a transient, rebuildable view. Durable truth lives in the
// SQLite index; callers load the commits reachable from a file's root
// into a Graph and query it. Commits are append-only and every parent
// exists before its children, so the relation is acyclic by
// construction; traversals still carry visited sets as a bound.
package dag

import (
	"fmt"
	"sort"
)

// ErrCommitNotFound reports a traversal that could not resolve its
// target, e.g. FindHead from an ID that was never loaded.
type ErrCommitNotFound struct {
	ID PostID
}

func (e *ErrCommitNotFound) Error() string {
	return fmt.Sprintf("commit not found: %s", e.ID)
}

// Graph is a set of loaded commits with an incrementally maintained
// parent→children index.
//
// Graph is not safe for concurrent use. Each traversal builds its own
// scratch state; share a Graph across goroutines only with external
// locking.
type Graph struct {
	commits  map[PostID]*Commit
	children map[PostID][]PostID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		commits:  make(map[PostID]*Commit),
		children: make(map[PostID][]PostID),
	}
}

// AddCommit inserts or replaces a commit and updates the child index.
// Re-adding the same ID first unlinks the old parent edges so the
// index never holds stale entries.
func (g *Graph) AddCommit(c *Commit) {
	if old, ok := g.commits[c.ID]; ok {
		for _, p := range old.Parents {
			g.children[p] = removeID(g.children[p], c.ID)
		}
	}
	g.commits[c.ID] = c
	for _, p := range c.Parents {
		g.children[p] = append(g.children[p], c.ID)
	}
}

// GetCommit returns the loaded commit with the given ID, if any.
func (g *Graph) GetCommit(id PostID) (*Commit, bool) {
	c, ok := g.commits[id]
	return c, ok
}

// Len returns the number of loaded commits.
func (g *Graph) Len() int {
	return len(g.commits)
}

// Children returns the IDs of loaded commits that list id as a parent.
func (g *Graph) Children(id PostID) []PostID {
	return g.children[id]
}

// FindHead resolves the current head reachable from start: the
// childless commit in start's forward closure with the latest
// timestamp. Timestamp ties break toward the lexicographically
// greatest ID so resolution is deterministic. Returns
// *ErrCommitNotFound when start is not loaded.
func (g *Graph) FindHead(start PostID) (*Commit, error) {
	heads := g.headsFrom(start)
	if len(heads) == 0 {
		return nil, &ErrCommitNotFound{ID: start}
	}

	best := heads[0]
	for _, h := range heads[1:] {
		if h.Timestamp.After(best.Timestamp) ||
			(h.Timestamp.Equal(best.Timestamp) && h.ID > best.ID) {
			best = h
		}
	}
	return best, nil
}

// Ancestors walks parent links backward from id and returns every
// visited commit, including id itself. Order is BFS visitation order.
func (g *Graph) Ancestors(id PostID) []*Commit {
	var out []*Commit
	visited := map[PostID]bool{id: true}
	queue := []PostID{id}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		c, ok := g.commits[cur]
		if !ok {
			continue
		}
		out = append(out, c)
		for _, p := range c.Parents {
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return out
}

// DetectForks returns the IDs of every head reachable from root,
// sorted for determinism. More than one entry means concurrent writers
// diverged and the histories need reconciling.
func (g *Graph) DetectForks(root PostID) []PostID {
	heads := g.headsFrom(root)
	ids := make([]PostID, 0, len(heads))
	for _, h := range heads {
		ids = append(ids, h.ID)
	}
	sort.Strings(ids)
	return ids
}

// headsFrom computes the forward closure of start and returns the
// commits in it that no loaded commit lists as a parent.
func (g *Graph) headsFrom(start PostID) []*Commit {
	if _, ok := g.commits[start]; !ok {
		return nil
	}

	reachable := map[PostID]bool{start: true}
	queue := []PostID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range g.children[cur] {
			if !reachable[child] {
				reachable[child] = true
				queue = append(queue, child)
			}
		}
	}

	var heads []*Commit
	for id := range reachable {
		if len(g.children[id]) == 0 {
			heads = append(heads, g.commits[id])
		}
	}
	return heads
}

func removeID(ids []PostID, id PostID) []PostID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
