package vfs

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes filesystem errors.
type ErrorCode string

const (
	// CodeFileNotFound indicates an operation on an unregistered path.
	CodeFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// CodeFileExists indicates Create on an already-registered path.
	CodeFileExists ErrorCode = "FILE_EXISTS"

	// CodeInvalidPath indicates a path that failed validation.
	CodeInvalidPath ErrorCode = "INVALID_PATH"

	// CodeCommitNotFound indicates a commit ID that resolves to nothing.
	CodeCommitNotFound ErrorCode = "COMMIT_NOT_FOUND"

	// CodeHashMismatch indicates reassembled content whose digest does
	// not match the commit record. Never tolerated silently.
	CodeHashMismatch ErrorCode = "HASH_MISMATCH"

	// CodeMergeConflict indicates a concurrent write the configured
	// merge strategy refused to reconcile.
	CodeMergeConflict ErrorCode = "MERGE_CONFLICT"

	// CodeContentTooLarge indicates a write above the configured cap.
	CodeContentTooLarge ErrorCode = "CONTENT_TOO_LARGE"

	// CodeReadOnly indicates a mutation through a read-only handle.
	CodeReadOnly ErrorCode = "READ_ONLY"
)

// FSError is a filesystem-level failure with a structured code.
type FSError struct {
	Code    ErrorCode
	Path    string
	Message string
	Err     error // underlying cause, optional
}

func (e *FSError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FSError) Unwrap() error {
	return e.Err
}

func newFSError(code ErrorCode, path, message string) *FSError {
	return &FSError{Code: code, Path: path, Message: message}
}

func hasCode(err error, code ErrorCode) bool {
	var fsErr *FSError
	if errors.As(err, &fsErr) {
		return fsErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a FILE_NOT_FOUND error.
func IsNotFound(err error) bool { return hasCode(err, CodeFileNotFound) }

// IsExists reports whether err is a FILE_EXISTS error.
func IsExists(err error) bool { return hasCode(err, CodeFileExists) }

// IsInvalidPath reports whether err is an INVALID_PATH error.
func IsInvalidPath(err error) bool { return hasCode(err, CodeInvalidPath) }

// IsHashMismatch reports whether err is a HASH_MISMATCH error.
func IsHashMismatch(err error) bool { return hasCode(err, CodeHashMismatch) }

// IsMergeConflict reports whether err is a MERGE_CONFLICT error.
func IsMergeConflict(err error) bool { return hasCode(err, CodeMergeConflict) }
