package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/plume/internal/dag"
)

// StoreCommit inserts or updates a commit keyed by its post ID.
// Parents are serialized as an ordered JSON array so the schema can
// carry merge commits without migration.
func (s *Store) StoreCommit(ctx context.Context, c *dag.Commit) error {
	parents := c.Parents
	if parents == nil {
		parents = []dag.PostID{}
	}
	parentsJSON, err := json.Marshal(parents)
	if err != nil {
		return fmt.Errorf("store commit %s: serialize parents: %w", c.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commits (post_id, parents, ts, author, hash, mime, size, head)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			parents = excluded.parents,
			ts = excluded.ts,
			author = excluded.author,
			hash = excluded.hash,
			mime = excluded.mime,
			size = excluded.size,
			head = excluded.head
	`,
		c.ID, string(parentsJSON), c.Timestamp.UnixMilli(),
		c.Author, c.Hash, c.Mime, c.Size, boolToInt(c.IsHead),
	)
	if err != nil {
		return fmt.Errorf("store commit %s: %w", c.ID, err)
	}
	return nil
}

// GetCommit returns the commit with the given post ID, or (nil, nil)
// when no such row exists.
func (s *Store) GetCommit(ctx context.Context, id dag.PostID) (*dag.Commit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT post_id, parents, ts, author, hash, mime, size, head
		FROM commits
		WHERE post_id = ?
	`, id)

	c, err := scanCommit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get commit %s: %w", id, err)
	}
	return c, nil
}

// GetChildren returns every commit whose parent list contains
// parentID, ordered by timestamp then ID for determinism. The match
// runs a LIKE over the serialized parents column; the quoting keeps
// "post-1" from matching inside "post-12".
func (s *Store) GetChildren(ctx context.Context, parentID dag.PostID) ([]*dag.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, parents, ts, author, hash, mime, size, head
		FROM commits
		WHERE parents LIKE ?
		ORDER BY ts ASC, post_id ASC
	`, `%"`+string(parentID)+`"%`)
	if err != nil {
		return nil, fmt.Errorf("get children of %s: %w", parentID, err)
	}
	defer rows.Close()

	var out []*dag.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("get children of %s: %w", parentID, err)
		}
		// LIKE is a substring match; confirm against the parsed list.
		if c.HasParent(parentID) {
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get children of %s: %w", parentID, err)
	}
	return out, nil
}

// SetHead marks a commit's head flag. It deliberately does not clear
// the flag on other commits: the flag is an informational hint and the
// authoritative head is always derived via dag.Graph traversal.
func (s *Store) SetHead(ctx context.Context, id dag.PostID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE commits SET head = 1 WHERE post_id = ?`, id)
	if err != nil {
		return fmt.Errorf("set head %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("set head %s: commit not found", id)
	}
	return nil
}

// Heads returns all commits carrying the informational head flag.
func (s *Store) Heads(ctx context.Context) ([]*dag.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, parents, ts, author, hash, mime, size, head
		FROM commits
		WHERE head = 1
		ORDER BY ts ASC, post_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list heads: %w", err)
	}
	defer rows.Close()

	var out []*dag.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("list heads: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommit(row rowScanner) (*dag.Commit, error) {
	var (
		c           dag.Commit
		parentsJSON string
		ts          int64
		head        int
	)
	if err := row.Scan(&c.ID, &parentsJSON, &ts, &c.Author, &c.Hash, &c.Mime, &c.Size, &head); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(parentsJSON), &c.Parents); err != nil {
		return nil, fmt.Errorf("parse parents: %w", err)
	}
	c.Timestamp = time.UnixMilli(ts).UTC()
	c.IsHead = head != 0
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
