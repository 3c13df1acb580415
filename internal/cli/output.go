package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/plume/internal/vfs"
)

// Exit codes.
const (
	ExitSuccess      = 0 // operation succeeded
	ExitFailure      = 1 // operation-level failure (not found, conflict, integrity)
	ExitCommandError = 2 // usage or environment error (bad config, unreadable index)
)

// Error codes, stable across commands and carried in JSON output.
const (
	ErrCodeGeneric     = "E001" // unknown error
	ErrCodeConfig      = "E002" // config missing or invalid
	ErrCodeIndex       = "E003" // index unavailable
	ErrCodeRemote      = "E004" // remote host failure
	ErrCodeNotFound    = "E005" // file not found
	ErrCodeExists      = "E006" // file already exists
	ErrCodeInvalidPath = "E007" // path failed validation
	ErrCodeConflict    = "E008" // concurrent write refused
	ErrCodeIntegrity   = "E009" // digest mismatch on read
	ErrCodeTooLarge    = "E010" // write above the configured cap
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode extracts the exit code from an error, defaulting to
// ExitFailure for plain errors.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode maps a filesystem error to its stable CLI code.
func errorCode(err error) string {
	var fsErr *vfs.FSError
	if !errors.As(err, &fsErr) {
		return ErrCodeGeneric
	}
	switch fsErr.Code {
	case vfs.CodeFileNotFound, vfs.CodeCommitNotFound:
		return ErrCodeNotFound
	case vfs.CodeFileExists:
		return ErrCodeExists
	case vfs.CodeInvalidPath:
		return ErrCodeInvalidPath
	case vfs.CodeMergeConflict:
		return ErrCodeConflict
	case vfs.CodeHashMismatch:
		return ErrCodeIntegrity
	case vfs.CodeContentTooLarge:
		return ErrCodeTooLarge
	default:
		return ErrCodeGeneric
	}
}

// Response is the JSON envelope every command emits in JSON mode.
type Response struct {
	Status string   `json:"status"` // "ok" or "error"
	Data   any      `json:"data,omitempty"`
	Error  *ErrBody `json:"error,omitempty"`
}

// ErrBody is the error half of a Response.
type ErrBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Formatter renders command results as text or JSON.
type Formatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// OK emits a success payload. In text mode data is printed with its
// String method (or %v); in JSON mode it becomes the data field.
func (f *Formatter) OK(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	if data != nil {
		fmt.Fprintln(f.Writer, data)
	}
	return nil
}

// Fail emits an error in the configured format and returns an
// ExitError carrying code.
func (f *Formatter) Fail(exitCode int, err error) error {
	code := errorCode(err)
	if f.Format == "json" {
		json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ErrBody{Code: code, Message: err.Error()},
		})
	} else {
		fmt.Fprintf(f.Writer, "error [%s]: %v\n", code, err)
	}
	return &ExitError{Code: exitCode, Message: err.Error(), Err: err}
}
