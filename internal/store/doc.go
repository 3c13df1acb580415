// Package store provides the SQLite-backed persistent index.
//
// The index is an accelerator, not the source of content: it holds
// commit metadata, path→root registrations, and chunk records so that
// graph traversal does not require exhaustive remote queries. Three
// relations:
//
//   - commits: one row per commit; parents serialized as an ordered
//     JSON array in a single text column
//   - files: path → root post registration
//   - chunks: segment posts of multi-segment writes, ordered by idx
//
// The head flag on commits is informational only. SetHead marks a row
// and never clears others, so multiple rows may carry the flag; the
// authoritative head is always derived by dag.Graph traversal.
//
// Database configuration follows the usual SQLite service setup:
// WAL mode, synchronous=NORMAL, busy_timeout=5000, foreign keys on,
// and a single-writer connection pool to avoid SQLITE_BUSY.
//
// Durability note: a remote post and its index row are separate
// writes. A crash between them strands the post outside the index;
// this window is accepted, not compensated.
package store
