package vfs

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plume/internal/dag"
	"github.com/roach88/plume/internal/remote"
	"github.com/roach88/plume/internal/store"
	"github.com/roach88/plume/internal/testutil"
)

type testEnv struct {
	fs    *FS
	mock  *remote.Mock
	store *store.Store
	clock *testutil.ManualClock
}

func newTestEnv(t *testing.T, opts ...func(*Options)) *testEnv {
	t.Helper()

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := remote.NewMock()
	clock := testutil.NewManualClock(time.UnixMilli(1700000000000).UTC())
	mock.SetClock(clock.Now)

	o := Options{
		Store:   s,
		Adapter: mock,
		Author:  "tester",
		Clock:   clock.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}

	fs, err := New(o)
	require.NoError(t, err)
	return &testEnv{fs: fs, mock: mock, store: s, clock: clock}
}

func TestCreate_ThenReadEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.Path())
	assert.Equal(t, f.Root(), f.Head())

	content, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, content)

	ok, err := env.fs.Exists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreate_ExistingPathFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)

	_, err = env.fs.Open(ctx, "notes.txt", Create)
	assert.True(t, IsExists(err), "got %v", err)
}

func TestOpen_MissingPathFails(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.fs.Open(context.Background(), "ghost.txt", ReadOnly)
	assert.True(t, IsNotFound(err), "got %v", err)
}

func TestOpen_InvalidPaths(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, path := range []string{"", "/abs.txt", "a/../b.txt", "a//b.txt", "a/./b.txt", "bad\x00name"} {
		_, err := env.fs.Open(ctx, path, Create)
		assert.True(t, IsInvalidPath(err), "path %q: got %v", path, err)
	}
}

func TestWrite_ThenRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	ref, err := f.Write(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Len(t, ref.Chunks, 1)
	assert.Equal(t, 5, ref.Size)
	assert.Equal(t, ref.Chunks[0], f.Head())

	content, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
}

func TestWrite_ChainGrowsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)

	for _, payload := range []string{"v1", "v2", "v3"} {
		env.clock.Advance(time.Second)
		_, err := f.Write(ctx, []byte(payload))
		require.NoError(t, err)
	}

	commits, err := env.fs.History(ctx, "notes.txt")
	require.NoError(t, err)
	require.Len(t, commits, 4) // root + 3 writes
	assert.True(t, commits[0].IsRoot())
	for i := 1; i < len(commits); i++ {
		assert.True(t, commits[i].HasParent(commits[i-1].ID))
		assert.True(t, commits[i].Timestamp.After(commits[i-1].Timestamp))
	}

	// A reopened handle resolves the same head.
	f2, err := env.fs.Open(ctx, "notes.txt", ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, f.Head(), f2.Head())

	content, err := f2.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("v3"), content)
}

func TestWrite_ChunkedRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "big.bin", Create)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("x"), 1000)
	env.clock.Advance(time.Second)
	ref, err := f.Write(ctx, payload)
	require.NoError(t, err)
	assert.Len(t, ref.Chunks, 4) // 280+280+280+160
	assert.Equal(t, 1000, ref.Size)

	// Served from cache.
	content, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	// Reassembled from recorded segments on a cold cache.
	env.fs.Cache().Clear()
	content, err = f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	// Continuation segments are not commits.
	commits, err := env.fs.History(ctx, "big.bin")
	require.NoError(t, err)
	assert.Len(t, commits, 2)
}

func TestRead_HashMismatchSurfaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = f.Write(ctx, []byte("hello"))
	require.NoError(t, err)

	// Corrupt the recorded digest, then force a remote read.
	c, err := env.store.GetCommit(ctx, f.Head())
	require.NoError(t, err)
	c.Hash = "0000"
	require.NoError(t, env.store.StoreCommit(ctx, c))
	env.fs.Cache().Clear()

	_, err = f.Read(ctx)
	assert.True(t, IsHashMismatch(err), "got %v", err)
}

func TestDelete_TombstoneAndRevive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = f.Write(ctx, []byte("hello"))
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	require.NoError(t, f.Delete(ctx))

	deleted, err := env.fs.IsDeleted(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, deleted)

	// The path stays registered and deletion is part of history.
	ok, err := env.fs.Exists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	// A later write revives the file on top of the tombstone.
	env.clock.Advance(time.Second)
	_, err = f.Write(ctx, []byte("back"))
	require.NoError(t, err)

	deleted, err = env.fs.IsDeleted(ctx, "notes.txt")
	require.NoError(t, err)
	assert.False(t, deleted)

	content, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("back"), content)
}

func TestWrite_ReadOnlyHandleRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)

	f, err := env.fs.Open(ctx, "notes.txt", ReadOnly)
	require.NoError(t, err)

	_, err = f.Write(ctx, []byte("nope"))
	assert.True(t, hasCode(err, CodeReadOnly), "got %v", err)
	assert.Error(t, f.Delete(ctx))
}

func TestWrite_SizeLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.MaxWriteSize = 10 })
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)

	_, err = f.Write(ctx, bytes.Repeat([]byte("x"), 11))
	assert.True(t, hasCode(err, CodeContentTooLarge), "got %v", err)
}

func TestWrite_ConcurrentHandlesLastWriterWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f1, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)
	f2, err := env.fs.Open(ctx, "notes.txt", ReadWrite)
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	_, err = f1.Write(ctx, []byte("from f1"))
	require.NoError(t, err)

	// f2's head is stale; the default strategy keeps f2's payload and
	// commits it on top of f1's head, so the chain stays linear.
	env.clock.Advance(time.Second)
	_, err = f2.Write(ctx, []byte("from f2"))
	require.NoError(t, err)

	forks, err := env.fs.Forks(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Len(t, forks, 1)

	content, err := f2.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("from f2"), content)
}

func TestWrite_ConcurrentHandlesRefused(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Merge = RefuseConflicts{} })
	ctx := context.Background()

	f1, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)
	f2, err := env.fs.Open(ctx, "notes.txt", ReadWrite)
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	_, err = f1.Write(ctx, []byte("from f1"))
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	_, err = f2.Write(ctx, []byte("from f2"))
	assert.True(t, IsMergeConflict(err), "got %v", err)

	// The refused handle keeps its old head and can still read.
	content, err := f2.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestForks_DetectsDivergence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)
	root := f.Root()

	// Two writers committing on the same parent without checking the
	// durable head, recorded directly.
	for i, id := range []dag.PostID{"writer-a", "writer-b"} {
		c := &dag.Commit{
			ID:        id,
			Parents:   []dag.PostID{root},
			Timestamp: env.clock.Now().Add(time.Duration(i+1) * time.Second),
			Hash:      "h",
			Author:    "other",
			Mime:      DefaultMime,
		}
		require.NoError(t, env.store.StoreCommit(ctx, c))
	}

	forks, err := env.fs.Forks(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []dag.PostID{"writer-a", "writer-b"}, forks)
}

func TestReadVersion_HistoricCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	ref1, err := f.Write(ctx, []byte("v1"))
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = f.Write(ctx, []byte("v2"))
	require.NoError(t, err)

	content, err := env.fs.ReadVersion(ctx, "notes.txt", ref1.Chunks[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), content)

	_, err = env.fs.ReadVersion(ctx, "notes.txt", "ghost")
	assert.True(t, hasCode(err, CodeCommitNotFound), "got %v", err)
}

func TestList_Prefix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, path := range []string{"logs/a.log", "logs/b.log", "top.txt"} {
		_, err := env.fs.Open(ctx, path, Create)
		require.NoError(t, err)
	}

	all, err := env.fs.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/a.log", "logs/b.log", "top.txt"}, all)

	logs, err := env.fs.List(ctx, "logs")
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/a.log", "logs/b.log"}, logs)
}

func TestOpen_MergesRemoteReplies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.fs.Open(ctx, "notes.txt", Create)
	require.NoError(t, err)

	// A reply posted outside this index: another client's commit.
	env.clock.Advance(time.Second)
	foreignID, err := env.mock.StoreReply(ctx, f.Root(), []byte("foreign"))
	require.NoError(t, err)

	f2, err := env.fs.Open(ctx, "notes.txt", ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, foreignID, f2.Head())

	// The synthesized commit is now persisted.
	c, err := env.store.GetCommit(ctx, foreignID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.HasParent(f.Root()))
}

func TestNew_Validation(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = New(Options{Adapter: remote.NewMock()})
	assert.Error(t, err)
	_, err = New(Options{Store: s})
	assert.Error(t, err)
	_, err = New(Options{Store: s, Adapter: remote.NewMock(), MaxSegment: -1})
	assert.Error(t, err)
}
