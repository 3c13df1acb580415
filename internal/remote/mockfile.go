package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/roach88/plume/internal/dag"
)

// mockSnapshot is the on-disk form of a Mock's state. The CLI's mock
// mode round-trips through it so posts survive across invocations.
type mockSnapshot struct {
	NextID int64            `json:"next_id"`
	Posts  []mockPostRecord `json:"posts"`
}

type mockPostRecord struct {
	ID      dag.PostID `json:"id"`
	Content []byte     `json:"content"`
	Parent  dag.PostID `json:"parent,omitempty"`
	Author  string     `json:"author"`
	Created time.Time  `json:"created"`
}

// LoadFile replaces the mock's state with the snapshot at path. A
// missing file is not an error; the mock stays empty.
func (m *Mock) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load mock state: %w", err)
	}

	var snap mockSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("load mock state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = snap.NextID
	m.posts = make(map[dag.PostID]*mockPost, len(snap.Posts))
	for _, rec := range snap.Posts {
		m.posts[rec.ID] = &mockPost{
			id:      rec.ID,
			content: rec.Content,
			parent:  rec.Parent,
			author:  rec.Author,
			created: rec.Created,
		}
	}
	return nil
}

// SaveFile writes the mock's state to path, ordered by ID so the file
// is stable across runs.
func (m *Mock) SaveFile(path string) error {
	m.mu.Lock()
	snap := mockSnapshot{NextID: m.nextID}
	for _, post := range m.posts {
		snap.Posts = append(snap.Posts, mockPostRecord{
			ID:      post.id,
			Content: post.content,
			Parent:  post.parent,
			Author:  post.author,
			Created: post.created,
		})
	}
	m.mu.Unlock()

	sort.Slice(snap.Posts, func(i, j int) bool {
		return postIDLess(snap.Posts[i].ID, snap.Posts[j].ID)
	})

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("save mock state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save mock state: %w", err)
	}
	return nil
}
