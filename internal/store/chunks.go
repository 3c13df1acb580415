package store

import (
	"context"
	"fmt"

	"github.com/roach88/plume/internal/dag"
)

// ChunkRecord is one physically posted segment of a logical write.
type ChunkRecord struct {
	PostID   dag.PostID
	CommitID dag.PostID
	Index    int
	Size     int
	Hash     string
}

// StoreChunks records the segments of a multi-segment write in order.
// The commit row must already exist (foreign key). Re-recording the
// same segment is idempotent.
func (s *Store) StoreChunks(ctx context.Context, records []ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (post_id, commit_id, idx, size, hash)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(post_id) DO NOTHING
		`, rec.PostID, rec.CommitID, rec.Index, rec.Size, rec.Hash)
		if err != nil {
			return fmt.Errorf("store chunk %s: %w", rec.PostID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

// IsChunkSegment reports whether postID is recorded as a continuation
// segment (position > 0) of some commit. The initial segment of a
// chunked write is the commit itself and does not count.
func (s *Store) IsChunkSegment(ctx context.Context, postID dag.PostID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks WHERE post_id = ? AND idx > 0
	`, postID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("chunk segment %s: %w", postID, err)
	}
	return n > 0, nil
}

// ChunksFor returns the recorded segments of a commit ordered by
// position. An empty result means the write fit in a single segment
// (or predates chunk recording).
func (s *Store) ChunksFor(ctx context.Context, commitID dag.PostID) ([]ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, commit_id, idx, size, hash
		FROM chunks
		WHERE commit_id = ?
		ORDER BY idx ASC
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("chunks for %s: %w", commitID, err)
	}
	defer rows.Close()

	var out []ChunkRecord
	for rows.Next() {
		var rec ChunkRecord
		if err := rows.Scan(&rec.PostID, &rec.CommitID, &rec.Index, &rec.Size, &rec.Hash); err != nil {
			return nil, fmt.Errorf("chunks for %s: %w", commitID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
