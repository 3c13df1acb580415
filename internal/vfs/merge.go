package vfs

import "fmt"

// MergeStrategy reconciles a concurrent write. When a write discovers
// that the durable head moved past the handle's head, the strategy is
// given the payload at the handle's head (base), the payload at the
// durable head (left), and the incoming payload (right), and returns
// the bytes to write on top of the durable head. Returning an error
// aborts the write with MERGE_CONFLICT.
type MergeStrategy interface {
	Merge(base, left, right []byte) ([]byte, error)
}

// LastWriterWins resolves every conflict in favor of the incoming
// payload. This is the default strategy.
type LastWriterWins struct{}

// Merge implements MergeStrategy.
func (LastWriterWins) Merge(base, left, right []byte) ([]byte, error) {
	return right, nil
}

// RefuseConflicts aborts every concurrent write so the caller can
// re-read and decide.
type RefuseConflicts struct{}

// Merge implements MergeStrategy.
func (RefuseConflicts) Merge(base, left, right []byte) ([]byte, error) {
	return nil, fmt.Errorf("concurrent write refused")
}
