package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/plume/internal/dag"
)

// Mock simulates the remote host in memory. IDs are deterministic
// ("post-1", "post-2", …) and all state is owned by the instance, so
// parallel tests never interfere with each other.
type Mock struct {
	mu     sync.Mutex
	posts  map[dag.PostID]*mockPost
	nextID int64
	author string

	// now stamps stored posts; replaceable so tests control ordering.
	now func() time.Time

	// failures, when non-nil, is consulted before every call. Tests
	// use it to inject transient errors for retry coverage.
	failures func(op string) error
}

type mockPost struct {
	id      dag.PostID
	content []byte
	parent  dag.PostID // empty for roots
	author  string
	created time.Time
}

// NewMock creates an empty mock host.
func NewMock() *Mock {
	return &Mock{
		posts:  make(map[dag.PostID]*mockPost),
		author: "mock-user",
		now:    time.Now,
	}
}

// SetAuthor overrides the author recorded on stored posts.
func (m *Mock) SetAuthor(author string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.author = author
}

// SetClock overrides the timestamp source for stored posts.
func (m *Mock) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailWith installs a hook consulted before every operation. The hook
// receives the operation name ("fetch", "store", "store_reply",
// "fetch_replies") and its non-nil result is returned to the caller.
func (m *Mock) FailWith(hook func(op string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = hook
}

// PostCount returns the number of stored posts.
func (m *Mock) PostCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

func (m *Mock) generateID() dag.PostID {
	m.nextID++
	return fmt.Sprintf("post-%d", m.nextID)
}

// Fetch implements Adapter.
func (m *Mock) Fetch(ctx context.Context, id dag.PostID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures != nil {
		if err := m.failures("fetch"); err != nil {
			return nil, err
		}
	}
	post, ok := m.posts[id]
	if !ok {
		return nil, &APIError{Message: fmt.Sprintf("post not found: %s", id)}
	}
	out := make([]byte, len(post.content))
	copy(out, post.content)
	return out, nil
}

// Store implements Adapter.
func (m *Mock) Store(ctx context.Context, content []byte) (dag.PostID, error) {
	return m.store(ctx, "store", "", content)
}

// StoreReply implements Adapter.
func (m *Mock) StoreReply(ctx context.Context, parent dag.PostID, content []byte) (dag.PostID, error) {
	return m.store(ctx, "store_reply", parent, content)
}

func (m *Mock) store(ctx context.Context, op string, parent dag.PostID, content []byte) (dag.PostID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures != nil {
		if err := m.failures(op); err != nil {
			return "", err
		}
	}
	if parent != "" {
		if _, ok := m.posts[parent]; !ok {
			return "", &APIError{Message: fmt.Sprintf("post not found: %s", parent)}
		}
	}

	id := m.generateID()
	stored := make([]byte, len(content))
	copy(stored, content)
	m.posts[id] = &mockPost{
		id:      id,
		content: stored,
		parent:  parent,
		author:  m.author,
		created: m.now(),
	}
	return id, nil
}

// FetchReplies implements Adapter. Replies are returned sorted by ID
// for determinism.
func (m *Mock) FetchReplies(ctx context.Context, id dag.PostID) ([]dag.PostID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures != nil {
		if err := m.failures("fetch_replies"); err != nil {
			return nil, err
		}
	}
	var replies []dag.PostID
	for _, post := range m.posts {
		if post.parent == id {
			replies = append(replies, post.id)
		}
	}
	sort.Slice(replies, func(i, j int) bool {
		return postIDLess(replies[i], replies[j])
	})
	return replies, nil
}

// postIDLess orders mock IDs numerically ("post-2" before "post-10").
func postIDLess(a, b dag.PostID) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
