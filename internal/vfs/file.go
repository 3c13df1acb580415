package vfs

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/plume/internal/dag"
	"github.com/roach88/plume/internal/digest"
	"github.com/roach88/plume/internal/encoding"
	"github.com/roach88/plume/internal/store"
)

// File is an open handle. It tracks the head the holder last observed;
// writes are validated against the durable head so two handles on the
// same path detect each other's commits.
type File struct {
	fs    *FS
	path  string
	root  dag.PostID
	mode  OpenMode
	token string

	mu   sync.Mutex
	head dag.PostID
}

func newHandleToken() string {
	return uuid.NewString()
}

// Path returns the registered path this handle was opened on.
func (f *File) Path() string { return f.path }

// Root returns the file's root commit ID.
func (f *File) Root() dag.PostID { return f.root }

// Mode returns the mode the handle was opened with.
func (f *File) Mode() OpenMode { return f.mode }

// Head returns the commit this handle currently points at.
func (f *File) Head() dag.PostID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head
}

// Read returns the logical payload at the handle's head. Roots and
// tombstones read as empty content.
func (f *File) Read(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	head := f.head
	f.mu.Unlock()

	c, err := f.fs.store.GetCommit(ctx, head)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newFSError(CodeCommitNotFound, f.path, fmt.Sprintf("commit not found: %s", head))
	}

	content, err := f.fs.fetchPayload(ctx, c)
	if err != nil {
		return nil, err
	}
	f.fs.log.Debug("file read", "handle", f.token, "path", f.path, "commit", head, "bytes", len(content))
	return content, nil
}

// Write commits content as a new version on top of the durable head.
//
// The durable head is re-derived from the index before posting. When it
// has moved past this handle's head, the configured merge strategy
// decides the payload; a refusal surfaces as MERGE_CONFLICT and the
// handle keeps its old head.
//
// Content longer than the segment cap is split: the first segment is
// posted as the reply that IS the commit, and each further segment is
// posted as a reply to the previous one. The returned reference lists
// every posted segment; the commit records the digest and size of the
// full logical payload.
func (f *File) Write(ctx context.Context, content []byte) (*dag.ContentRef, error) {
	if f.mode == ReadOnly {
		return nil, newFSError(CodeReadOnly, f.path, "handle is read-only")
	}
	if f.fs.maxWriteSize > 0 && len(content) > f.fs.maxWriteSize {
		return nil, newFSError(CodeContentTooLarge, f.path,
			fmt.Sprintf("%d bytes exceeds limit of %d", len(content), f.fs.maxWriteSize))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	durableHead, err := f.durableHead(ctx)
	if err != nil {
		return nil, err
	}

	if durableHead.ID != f.head {
		merged, err := f.resolveConflict(ctx, durableHead, content)
		if err != nil {
			return nil, err
		}
		content = merged
	}

	segments := f.fs.splitter.Split(content)
	hash := digest.Sum(content)

	ids := make([]dag.PostID, 0, len(segments))
	parent := durableHead.ID
	for _, seg := range segments {
		id, err := f.fs.adapter.StoreReply(ctx, parent, seg)
		if err != nil {
			return nil, fmt.Errorf("post segment %d of %q: %w", len(ids), f.path, err)
		}
		ids = append(ids, id)
		parent = id
	}

	commit := &dag.Commit{
		ID:        ids[0],
		Parents:   []dag.PostID{durableHead.ID},
		Timestamp: f.fs.now(),
		Hash:      hash,
		Author:    f.fs.author,
		Mime:      DefaultMime,
		Size:      len(content),
		IsHead:    true,
	}
	if err := f.fs.store.StoreCommit(ctx, commit); err != nil {
		return nil, err
	}

	records := make([]store.ChunkRecord, 0, len(ids))
	for i, id := range ids {
		records = append(records, store.ChunkRecord{
			PostID:   id,
			CommitID: commit.ID,
			Index:    i,
			Size:     len(segments[i]),
			Hash:     digest.Sum(segments[i]),
		})
	}
	if err := f.fs.store.StoreChunks(ctx, records); err != nil {
		return nil, err
	}
	if err := f.fs.store.SetHead(ctx, commit.ID); err != nil {
		return nil, err
	}

	f.fs.cache.Put(commit.ID, content)
	f.head = commit.ID

	f.fs.log.Info("file written",
		"handle", f.token, "path", f.path, "commit", commit.ID,
		"segments", len(ids), "bytes", len(content))

	return &dag.ContentRef{Chunks: ids, Hash: hash, Size: len(content)}, nil
}

// Delete commits a tombstone on top of the durable head. The path stays
// registered; the file reads as deleted until a later write revives it.
func (f *File) Delete(ctx context.Context) error {
	if f.mode == ReadOnly {
		return newFSError(CodeReadOnly, f.path, "handle is read-only")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	durableHead, err := f.durableHead(ctx)
	if err != nil {
		return err
	}

	payload, err := encoding.Encode(nil, TombstoneMime)
	if err != nil {
		return err
	}
	id, err := f.fs.adapter.StoreReply(ctx, durableHead.ID, payload)
	if err != nil {
		return fmt.Errorf("post tombstone for %q: %w", f.path, err)
	}

	commit := &dag.Commit{
		ID:        id,
		Parents:   []dag.PostID{durableHead.ID},
		Timestamp: f.fs.now(),
		Hash:      digest.Sum(nil),
		Author:    f.fs.author,
		Mime:      TombstoneMime,
		IsHead:    true,
	}
	if err := f.fs.store.StoreCommit(ctx, commit); err != nil {
		return err
	}
	if err := f.fs.store.SetHead(ctx, id); err != nil {
		return err
	}

	f.fs.cache.Put(id, nil)
	f.head = id

	f.fs.log.Info("file deleted", "handle", f.token, "path", f.path, "commit", id)
	return nil
}

// durableHead re-derives the current head from persisted records only.
func (f *File) durableHead(ctx context.Context) (*dag.Commit, error) {
	g, err := f.fs.loadGraph(ctx, f.root, false)
	if err != nil {
		return nil, err
	}
	head, err := g.FindHead(f.root)
	if err != nil {
		return nil, newFSError(CodeCommitNotFound, f.path, err.Error())
	}
	return head, nil
}

// resolveConflict runs the merge strategy for a write whose durable
// head moved past the handle's head.
func (f *File) resolveConflict(ctx context.Context, durableHead *dag.Commit, incoming []byte) ([]byte, error) {
	base, err := f.payloadAt(ctx, f.head)
	if err != nil {
		return nil, err
	}
	left, err := f.fs.fetchPayload(ctx, durableHead)
	if err != nil {
		return nil, err
	}

	merged, err := f.fs.merge.Merge(base, left, incoming)
	if err != nil {
		return nil, &FSError{
			Code: CodeMergeConflict, Path: f.path,
			Message: fmt.Sprintf("head moved from %s to %s", f.head, durableHead.ID),
			Err:     err,
		}
	}
	f.fs.log.Warn("concurrent write merged",
		"handle", f.token, "path", f.path,
		"stale_head", f.head, "durable_head", durableHead.ID)
	return merged, nil
}

func (f *File) payloadAt(ctx context.Context, id dag.PostID) ([]byte, error) {
	c, err := f.fs.store.GetCommit(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newFSError(CodeCommitNotFound, f.path, fmt.Sprintf("commit not found: %s", id))
	}
	return f.fs.fetchPayload(ctx, c)
}
