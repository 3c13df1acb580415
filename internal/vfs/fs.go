// Package vfs composes the commit graph, chunker, content cache,
// persistent index, and remote adapter into file semantics: each root
// post is a file, each reply a commit, and the current head is derived
// by graph traversal rather than stored.
package vfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/plume/internal/cache"
	"github.com/roach88/plume/internal/chunk"
	"github.com/roach88/plume/internal/dag"
	"github.com/roach88/plume/internal/digest"
	"github.com/roach88/plume/internal/encoding"
	"github.com/roach88/plume/internal/remote"
	"github.com/roach88/plume/internal/store"
)

// DefaultMime is recorded on ordinary write commits.
const DefaultMime = "text/plain"

// TombstoneMime marks a commit that logically deletes its file.
const TombstoneMime = "application/x-plume-tombstone"

// OpenMode selects how a file is opened.
type OpenMode int

const (
	// Create registers a new file; fails if the path exists.
	Create OpenMode = iota
	// ReadOnly opens an existing file for reading.
	ReadOnly
	// ReadWrite opens an existing file for reading and writing.
	ReadWrite
)

func (m OpenMode) String() string {
	switch m {
	case Create:
		return "create"
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("OpenMode(%d)", int(m))
	}
}

// Options configures a filesystem instance. Store and Adapter are
// required; everything else has defaults.
type Options struct {
	Store   *store.Store
	Adapter remote.Adapter

	// Author is the account identifier recorded on commits.
	Author string

	// Cache is shared across handles; nil creates a fresh one.
	Cache *cache.Cache

	// MaxSegment overrides the per-post payload cap. Zero means
	// chunk.DefaultMaxSegment.
	MaxSegment int

	// MaxWriteSize caps a single logical write. Zero means unlimited.
	MaxWriteSize int

	// Merge reconciles concurrent writes. Nil means LastWriterWins.
	Merge MergeStrategy

	// Logger receives structured operation logs. Nil discards them.
	Logger *slog.Logger

	// Clock stamps commits. Nil means time.Now.
	Clock func() time.Time
}

// FS is the filesystem. It is safe for concurrent use; the cache and
// index serialize their own access, and handles carry only their own
// head.
type FS struct {
	store        *store.Store
	adapter      remote.Adapter
	cache        *cache.Cache
	splitter     *chunk.Splitter
	author       string
	maxWriteSize int
	merge        MergeStrategy
	log          *slog.Logger
	now          func() time.Time
}

// New creates a filesystem over the given index and adapter.
func New(opts Options) (*FS, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("vfs: store is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("vfs: adapter is required")
	}

	maxSegment := opts.MaxSegment
	if maxSegment == 0 {
		maxSegment = chunk.DefaultMaxSegment
	}
	splitter, err := chunk.NewSplitter(maxSegment)
	if err != nil {
		return nil, fmt.Errorf("vfs: %w", err)
	}

	c := opts.Cache
	if c == nil {
		c = cache.New()
	}
	merge := opts.Merge
	if merge == nil {
		merge = LastWriterWins{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &FS{
		store:        opts.Store,
		adapter:      opts.Adapter,
		cache:        c,
		splitter:     splitter,
		author:       opts.Author,
		maxWriteSize: opts.MaxWriteSize,
		merge:        merge,
		log:          log,
		now:          now,
	}, nil
}

// Cache exposes the shared content cache.
func (fs *FS) Cache() *cache.Cache {
	return fs.cache
}

// Open opens or creates the file at path.
//
// Create posts an empty root payload, records the parentless commit,
// and registers the path; it fails with FILE_EXISTS on a registered
// path. ReadOnly and ReadWrite resolve the current head by loading the
// reply tree reachable from the registered root (merged with the
// persisted records) and running head resolution; they fail with
// FILE_NOT_FOUND on an unregistered path.
func (fs *FS) Open(ctx context.Context, path string, mode OpenMode) (*File, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	exists, err := fs.store.FileExists(ctx, path)
	if err != nil {
		return nil, err
	}

	switch mode {
	case Create:
		if exists {
			return nil, newFSError(CodeFileExists, path, "file already exists")
		}
		return fs.create(ctx, path)
	case ReadOnly, ReadWrite:
		if !exists {
			return nil, newFSError(CodeFileNotFound, path, "file not found")
		}
		return fs.openExisting(ctx, path, mode)
	default:
		return nil, fmt.Errorf("vfs: unknown open mode %v", mode)
	}
}

func (fs *FS) create(ctx context.Context, path string) (*File, error) {
	payload, err := encoding.Encode(nil, DefaultMime)
	if err != nil {
		return nil, err
	}

	rootID, err := fs.adapter.Store(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("post root for %q: %w", path, err)
	}

	root := &dag.Commit{
		ID:        rootID,
		Timestamp: fs.now(),
		Hash:      digest.Sum(nil),
		Author:    fs.author,
		Mime:      DefaultMime,
		IsHead:    true,
	}
	// Three independent durable writes; a crash between them strands
	// the remote root post. Accepted window, see package store.
	if err := fs.store.StoreCommit(ctx, root); err != nil {
		return nil, err
	}
	if err := fs.store.SetHead(ctx, rootID); err != nil {
		return nil, err
	}
	if err := fs.store.RegisterFile(ctx, path, rootID); err != nil {
		return nil, err
	}
	fs.cache.Put(rootID, nil)

	f := fs.newFile(path, rootID, rootID, ReadWrite)
	fs.log.Info("file created", "handle", f.token, "path", path, "root", rootID)
	return f, nil
}

func (fs *FS) openExisting(ctx context.Context, path string, mode OpenMode) (*File, error) {
	rootID, err := fs.store.FileRoot(ctx, path)
	if err != nil {
		return nil, err
	}

	g, err := fs.loadGraph(ctx, rootID, true)
	if err != nil {
		return nil, err
	}
	head, err := g.FindHead(rootID)
	if err != nil {
		return nil, newFSError(CodeCommitNotFound, path, err.Error())
	}

	f := fs.newFile(path, rootID, head.ID, mode)
	fs.log.Debug("file opened", "handle", f.token, "path", path, "mode", mode.String(), "head", head.ID)
	return f, nil
}

// loadGraph builds the in-memory commit graph for a file. Persisted
// children are always loaded; with includeRemote the reply tree is
// also walked through the adapter and commits unknown to the index are
// synthesized (zero timestamp, parent from the reply edge) and
// persisted. Reply posts that are recorded as continuation segments
// of a chunked write are not commits and are skipped.
func (fs *FS) loadGraph(ctx context.Context, rootID dag.PostID, includeRemote bool) (*dag.Graph, error) {
	g := dag.NewGraph()

	rootCommit, err := fs.store.GetCommit(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if rootCommit == nil {
		// Registered path whose commit row is missing (e.g. an index
		// rebuilt from a copy). Synthesize and persist a bare root.
		rootCommit = &dag.Commit{ID: rootID, Author: fs.author, Mime: DefaultMime}
		if err := fs.store.StoreCommit(ctx, rootCommit); err != nil {
			return nil, err
		}
	}
	g.AddCommit(rootCommit)

	queue := []dag.PostID{rootID}
	seen := map[dag.PostID]bool{rootID: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children, err := fs.store.GetChildren(ctx, cur)
		if err != nil {
			return nil, err
		}
		known := make(map[dag.PostID]bool, len(children))
		for _, c := range children {
			known[c.ID] = true
			if !seen[c.ID] {
				seen[c.ID] = true
				g.AddCommit(c)
				queue = append(queue, c.ID)
			}
		}

		if !includeRemote {
			continue
		}
		replies, err := fs.adapter.FetchReplies(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("fetch replies of %s: %w", cur, err)
		}
		for _, id := range replies {
			if seen[id] || known[id] {
				continue
			}
			segment, err := fs.isContinuationSegment(ctx, id)
			if err != nil {
				return nil, err
			}
			if segment {
				continue
			}
			// A reply the index has never seen: another writer's
			// commit. Record it with what the edge tells us.
			synth := &dag.Commit{ID: id, Parents: []dag.PostID{cur}, Author: "", Mime: DefaultMime}
			if err := fs.store.StoreCommit(ctx, synth); err != nil {
				return nil, err
			}
			seen[id] = true
			g.AddCommit(synth)
			queue = append(queue, id)
		}
	}
	return g, nil
}

// isContinuationSegment reports whether postID is a non-initial
// segment of a chunked write (idx > 0 in the chunks relation). The
// initial segment doubles as the commit itself and must stay in the
// graph.
func (fs *FS) isContinuationSegment(ctx context.Context, postID dag.PostID) (bool, error) {
	// The chunks relation is small per commit; a point query would
	// need a dedicated store method. Reuse ChunksFor on the post's
	// own record via commit lookup instead: a continuation segment is
	// never a commit row.
	c, err := fs.store.GetCommit(ctx, postID)
	if err != nil {
		return false, err
	}
	if c != nil {
		return false, nil
	}
	return fs.store.IsChunkSegment(ctx, postID)
}

// List returns registered paths filtered by prefix. Empty and "/"
// return every path.
func (fs *FS) List(ctx context.Context, prefix string) ([]string, error) {
	return fs.store.ListFiles(ctx, prefix)
}

// Exists reports whether path is registered. Tombstoned files still
// exist; deletion is history, not unregistration.
func (fs *FS) Exists(ctx context.Context, path string) (bool, error) {
	path, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	return fs.store.FileExists(ctx, path)
}

// History returns every commit reachable from path's root, ascending
// by timestamp (ties by ID). Only persisted records are consulted.
func (fs *FS) History(ctx context.Context, path string) ([]*dag.Commit, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	rootID, err := fs.store.FileRoot(ctx, path)
	if err != nil {
		return nil, err
	}
	if rootID == "" {
		return nil, newFSError(CodeFileNotFound, path, "file not found")
	}

	g, err := fs.loadGraph(ctx, rootID, false)
	if err != nil {
		return nil, err
	}

	commits := make([]*dag.Commit, 0, g.Len())
	for _, id := range append([]dag.PostID{rootID}, allDescendants(g, rootID)...) {
		if c, ok := g.GetCommit(id); ok {
			commits = append(commits, c)
		}
	}
	sort.Slice(commits, func(i, j int) bool {
		if !commits[i].Timestamp.Equal(commits[j].Timestamp) {
			return commits[i].Timestamp.Before(commits[j].Timestamp)
		}
		return commits[i].ID < commits[j].ID
	})
	return commits, nil
}

// Forks returns the IDs of every current head reachable from path's
// root. More than one entry means concurrent writers diverged.
func (fs *FS) Forks(ctx context.Context, path string) ([]dag.PostID, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	rootID, err := fs.store.FileRoot(ctx, path)
	if err != nil {
		return nil, err
	}
	if rootID == "" {
		return nil, newFSError(CodeFileNotFound, path, "file not found")
	}
	g, err := fs.loadGraph(ctx, rootID, false)
	if err != nil {
		return nil, err
	}
	return g.DetectForks(rootID), nil
}

// IsDeleted reports whether path's derived head is a tombstone.
func (fs *FS) IsDeleted(ctx context.Context, path string) (bool, error) {
	path, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	rootID, err := fs.store.FileRoot(ctx, path)
	if err != nil {
		return false, err
	}
	if rootID == "" {
		return false, newFSError(CodeFileNotFound, path, "file not found")
	}
	g, err := fs.loadGraph(ctx, rootID, false)
	if err != nil {
		return false, err
	}
	head, err := g.FindHead(rootID)
	if err != nil {
		return false, newFSError(CodeCommitNotFound, path, err.Error())
	}
	return head.Mime == TombstoneMime, nil
}

// ReadVersion returns the logical payload of any historic commit of
// path, not just the head.
func (fs *FS) ReadVersion(ctx context.Context, path string, commitID dag.PostID) ([]byte, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	c, err := fs.store.GetCommit(ctx, commitID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newFSError(CodeCommitNotFound, path, fmt.Sprintf("commit not found: %s", commitID))
	}
	return fs.fetchPayload(ctx, c)
}

// fetchPayload assembles the full logical payload of a commit: cache
// first, then the recorded chunk list, then a remote reply-chain walk.
// The digest is verified on every remote path.
func (fs *FS) fetchPayload(ctx context.Context, c *dag.Commit) ([]byte, error) {
	if content, ok := fs.cache.Get(c.ID); ok {
		return content, nil
	}

	records, err := fs.store.ChunksFor(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if len(records) > 0 {
		segments := make([][]byte, 0, len(records))
		for _, rec := range records {
			seg, err := fs.adapter.Fetch(ctx, rec.PostID)
			if err != nil {
				return nil, fmt.Errorf("fetch segment %s: %w", rec.PostID, err)
			}
			segments = append(segments, seg)
		}
		raw = chunk.Join(segments)
	} else {
		raw, err = fs.fetchReplyChain(ctx, c)
		if err != nil {
			return nil, err
		}
	}

	content := raw
	if framedCommit(c) {
		_, decoded, err := encoding.Decode(raw)
		if err != nil {
			return nil, &FSError{Code: CodeHashMismatch, Message: "undecodable framed payload", Err: err}
		}
		content = decoded
	}

	// Commits synthesized from foreign replies carry no digest yet;
	// record what was fetched instead of refusing it.
	if c.Hash == "" {
		c.Hash = digest.Sum(content)
		c.Size = len(content)
		if err := fs.store.StoreCommit(ctx, c); err != nil {
			return nil, err
		}
	} else if !digest.Verify(content, c.Hash) {
		return nil, newFSError(CodeHashMismatch, "",
			fmt.Sprintf("commit %s: expected %s, got %s", c.ID, c.Hash, digest.Sum(content)))
	}
	fs.cache.Put(c.ID, content)
	return content, nil
}

// fetchReplyChain recovers a multi-segment payload with no recorded
// chunk rows by walking the remote reply chain from the head segment.
// Each continuation segment is the reply chained off the previous one;
// the walk stops once the commit's recorded size is covered.
func (fs *FS) fetchReplyChain(ctx context.Context, c *dag.Commit) ([]byte, error) {
	content, err := fs.adapter.Fetch(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.ID, err)
	}

	cur := c.ID
	for len(content) < c.Size {
		replies, err := fs.adapter.FetchReplies(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("fetch replies of %s: %w", cur, err)
		}
		next := dag.PostID("")
		for _, id := range replies {
			// Continuation segments are never commit rows; a reply
			// that is one belongs to the next write, not this payload.
			known, lookupErr := fs.store.GetCommit(ctx, id)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if known == nil {
				next = id
				break
			}
		}
		if next == "" {
			break
		}
		seg, err := fs.adapter.Fetch(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("fetch segment %s: %w", next, err)
		}
		content = append(content, seg...)
		cur = next
	}
	return content, nil
}

func (fs *FS) newFile(path string, rootID, headID dag.PostID, mode OpenMode) *File {
	return &File{
		fs:    fs,
		path:  path,
		root:  rootID,
		head:  headID,
		mode:  mode,
		token: newHandleToken(),
	}
}

// framedCommit reports whether the commit's physical payload carries
// an encoding header (roots and tombstones do; ordinary writes post
// raw bytes).
func framedCommit(c *dag.Commit) bool {
	return c.IsRoot() || c.Mime == TombstoneMime
}

// allDescendants returns every ID reachable forward from rootID,
// excluding rootID itself.
func allDescendants(g *dag.Graph, rootID dag.PostID) []dag.PostID {
	var out []dag.PostID
	seen := map[dag.PostID]bool{rootID: true}
	queue := []dag.PostID{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range g.Children(cur) {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
				queue = append(queue, child)
			}
		}
	}
	return out
}

// normalizePath NFC-normalizes a path and validates it: non-empty,
// relative, no parent traversal, no control characters.
func normalizePath(path string) (string, error) {
	path = norm.NFC.String(path)
	if path == "" {
		return "", newFSError(CodeInvalidPath, path, "path is empty")
	}
	if strings.HasPrefix(path, "/") {
		return "", newFSError(CodeInvalidPath, path, "path must be relative")
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			return "", newFSError(CodeInvalidPath, path, "empty path component")
		}
		if part == ".." || part == "." {
			return "", newFSError(CodeInvalidPath, path, "path traversal not allowed")
		}
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return "", newFSError(CodeInvalidPath, path, "control character in path")
		}
	}
	return path, nil
}
