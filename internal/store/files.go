package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/plume/internal/dag"
)

// RegisterFile records a path→root registration. The insert is plain
// (no upsert): a file's root never changes, and re-registering an
// existing path is a caller bug surfaced as a constraint error.
func (s *Store) RegisterFile(ctx context.Context, path string, rootID dag.PostID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (path, root_id, created_at)
		VALUES (?, ?, ?)
	`, path, rootID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("register file %q: %w", path, err)
	}
	return nil
}

// FileRoot returns the root post ID registered for path, or ("",
// nil) when the path is unregistered.
func (s *Store) FileRoot(ctx context.Context, path string) (dag.PostID, error) {
	var root dag.PostID
	err := s.db.QueryRowContext(ctx,
		`SELECT root_id FROM files WHERE path = ?`, path,
	).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("file root %q: %w", path, err)
	}
	return root, nil
}

// ListFiles returns registered paths filtered by prefix, sorted. An
// empty prefix (or "/") returns every path.
func (s *Store) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	if prefix == "/" {
		prefix = ""
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT path FROM files
		WHERE path LIKE ? ESCAPE '\'
		ORDER BY path ASC
	`, likePrefix(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// FileExists reports whether path is registered.
func (s *Store) FileExists(ctx context.Context, path string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE path = ?`, path,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("file exists %q: %w", path, err)
	}
	return count > 0, nil
}

// likePrefix escapes LIKE metacharacters so a prefix containing '%' or
// '_' matches literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}
