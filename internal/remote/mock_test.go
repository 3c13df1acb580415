package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_StoreFetch(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	id, err := m.Store(ctx, []byte("Hello, world!"))
	require.NoError(t, err)
	assert.Equal(t, "post-1", id)

	content, err := m.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, world!"), content)
}

func TestMock_FetchMissing(t *testing.T) {
	m := NewMock()

	_, err := m.Fetch(context.Background(), "post-99")
	assert.True(t, IsAPIError(err))
}

func TestMock_Replies(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	root, err := m.Store(ctx, []byte("root"))
	require.NoError(t, err)
	r1, err := m.StoreReply(ctx, root, []byte("reply 1"))
	require.NoError(t, err)
	r2, err := m.StoreReply(ctx, root, []byte("reply 2"))
	require.NoError(t, err)

	replies, err := m.FetchReplies(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []string{r1, r2}, replies)
}

func TestMock_ReplyToMissingParent(t *testing.T) {
	m := NewMock()

	_, err := m.StoreReply(context.Background(), "post-404", []byte("x"))
	assert.True(t, IsAPIError(err))
}

func TestMock_InstancesAreIndependent(t *testing.T) {
	ctx := context.Background()
	a := NewMock()
	b := NewMock()

	idA, err := a.Store(ctx, []byte("in a"))
	require.NoError(t, err)
	idB, err := b.Store(ctx, []byte("in b"))
	require.NoError(t, err)

	// Both start their counters at 1: state is per-instance, not global.
	assert.Equal(t, "post-1", idA)
	assert.Equal(t, "post-1", idB)

	_, err = b.Fetch(ctx, idA)
	assert.Error(t, err)
	contentB, err := b.Fetch(ctx, idB)
	require.NoError(t, err)
	assert.Equal(t, []byte("in b"), contentB)
}

func TestMock_FailureInjection(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	m.FailWith(func(op string) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	})

	_, err := m.Store(ctx, []byte("x"))
	assert.ErrorIs(t, err, boom)

	id, err := m.Store(ctx, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "post-1", id, "a failed store must not consume an ID")
}

func TestMock_CancelledContext(t *testing.T) {
	m := NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Store(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
