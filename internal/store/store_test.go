package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plume/internal/dag"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCommit(id dag.PostID, parents []dag.PostID, ts time.Time) *dag.Commit {
	return &dag.Commit{
		ID:        id,
		Parents:   parents,
		Timestamp: ts,
		Hash:      "digest-" + id,
		Author:    "tester",
		Mime:      "text/plain",
		Size:      42,
	}
}

func TestOpen_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	// Re-opening the same file applies the schema idempotently.
	s2, err := Open(path)
	require.NoError(t, err)
	s2.Close()
}

func TestStoreCommit_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ts := time.UnixMilli(1700000000123).UTC()
	c := testCommit("post-1", nil, ts)
	require.NoError(t, s.StoreCommit(ctx, c))

	got, err := s.GetCommit(ctx, "post-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "post-1", got.ID)
	assert.Empty(t, got.Parents)
	assert.Equal(t, ts, got.Timestamp)
	assert.Equal(t, "digest-post-1", got.Hash)
	assert.Equal(t, "tester", got.Author)
	assert.Equal(t, 42, got.Size)
	assert.False(t, got.IsHead)
}

func TestStoreCommit_UpsertReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := testCommit("post-1", nil, time.UnixMilli(1000))
	require.NoError(t, s.StoreCommit(ctx, c))

	c.Mime = "application/x-plume-tombstone"
	c.Size = 0
	require.NoError(t, s.StoreCommit(ctx, c))

	got, err := s.GetCommit(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, "application/x-plume-tombstone", got.Mime)
	assert.Equal(t, 0, got.Size)
}

func TestGetCommit_Missing(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetCommit(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetChildren(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1000)

	require.NoError(t, s.StoreCommit(ctx, testCommit("post-1", nil, t0)))
	require.NoError(t, s.StoreCommit(ctx, testCommit("post-2", []dag.PostID{"post-1"}, t0.Add(time.Second))))
	require.NoError(t, s.StoreCommit(ctx, testCommit("post-3", []dag.PostID{"post-1"}, t0.Add(2*time.Second))))
	require.NoError(t, s.StoreCommit(ctx, testCommit("post-4", []dag.PostID{"post-2"}, t0.Add(3*time.Second))))

	children, err := s.GetChildren(ctx, "post-1")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "post-2", children[0].ID)
	assert.Equal(t, "post-3", children[1].ID)
}

func TestGetChildren_NoSubstringFalsePositives(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1000)

	// "post-1" must not match a child of "post-12".
	require.NoError(t, s.StoreCommit(ctx, testCommit("post-1", nil, t0)))
	require.NoError(t, s.StoreCommit(ctx, testCommit("post-12", nil, t0)))
	require.NoError(t, s.StoreCommit(ctx, testCommit("c", []dag.PostID{"post-12"}, t0.Add(time.Second))))

	children, err := s.GetChildren(ctx, "post-1")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestSetHead_MarksWithoutClearing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1000)

	require.NoError(t, s.StoreCommit(ctx, testCommit("post-1", nil, t0)))
	require.NoError(t, s.StoreCommit(ctx, testCommit("post-2", []dag.PostID{"post-1"}, t0.Add(time.Second))))

	require.NoError(t, s.SetHead(ctx, "post-1"))
	require.NoError(t, s.SetHead(ctx, "post-2"))

	// The flag accumulates; it is a hint, not the derived head.
	heads, err := s.Heads(ctx)
	require.NoError(t, err)
	assert.Len(t, heads, 2)
}

func TestSetHead_MissingCommit(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.SetHead(context.Background(), "ghost"))
}

func TestRegisterFile_And_FileRoot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterFile(ctx, "notes.txt", "post-1"))

	root, err := s.FileRoot(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "post-1", root)

	root, err = s.FileRoot(ctx, "missing.txt")
	require.NoError(t, err)
	assert.Empty(t, root)
}

func TestRegisterFile_DuplicateFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterFile(ctx, "notes.txt", "post-1"))
	assert.Error(t, s.RegisterFile(ctx, "notes.txt", "post-2"))
}

func TestListFiles_PrefixFiltering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterFile(ctx, "logs/a.log", "post-1"))
	require.NoError(t, s.RegisterFile(ctx, "logs/b.log", "post-2"))
	require.NoError(t, s.RegisterFile(ctx, "top.txt", "post-3"))

	all, err := s.ListFiles(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/a.log", "logs/b.log", "top.txt"}, all)

	all, err = s.ListFiles(ctx, "/")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	logs, err := s.ListFiles(ctx, "logs")
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/a.log", "logs/b.log"}, logs)
}

func TestListFiles_EscapesLikeMetacharacters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterFile(ctx, "a%b.txt", "post-1"))
	require.NoError(t, s.RegisterFile(ctx, "axb.txt", "post-2"))

	got, err := s.ListFiles(ctx, "a%")
	require.NoError(t, err)
	assert.Equal(t, []string{"a%b.txt"}, got)
}

func TestFileExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.FileExists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RegisterFile(ctx, "notes.txt", "post-1"))

	ok, err = s.FileExists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChunks_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StoreCommit(ctx, testCommit("post-1", nil, time.UnixMilli(1000))))

	records := []ChunkRecord{
		{PostID: "post-1", CommitID: "post-1", Index: 0, Size: 280, Hash: "h0"},
		{PostID: "post-2", CommitID: "post-1", Index: 1, Size: 280, Hash: "h1"},
		{PostID: "post-3", CommitID: "post-1", Index: 2, Size: 160, Hash: "h2"},
	}
	require.NoError(t, s.StoreChunks(ctx, records))

	got, err := s.ChunksFor(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, records, got)

	// Idempotent re-record.
	require.NoError(t, s.StoreChunks(ctx, records))
	got, err = s.ChunksFor(ctx, "post-1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestChunksFor_EmptyWhenUnrecorded(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ChunksFor(context.Background(), "post-9")
	require.NoError(t, err)
	assert.Empty(t, got)
}
