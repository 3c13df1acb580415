package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plume/internal/vfs"
)

// NewWriteCommand commits a new version of a file.
func NewWriteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write <path> [file]",
		Short: "Commit a new version of a file",
		Long:  "Write reads content from the named file, or stdin when the argument\nis absent or \"-\", and commits it as the new head version.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				content, err := readInput(cmd, args)
				if err != nil {
					return a.out.Fail(ExitCommandError, err)
				}

				f, err := a.fs.Open(cmd.Context(), args[0], vfs.ReadWrite)
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}
				ref, err := f.Write(cmd.Context(), content)
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}

				if a.out.Format == "json" {
					return a.out.OK(map[string]any{
						"path":     f.Path(),
						"commit":   string(ref.Chunks[0]),
						"segments": len(ref.Chunks),
						"size":     ref.Size,
						"hash":     ref.Hash,
					})
				}
				return a.out.OK(fmt.Sprintf("wrote %s (commit %s, %d bytes in %d segment(s))",
					f.Path(), ref.Chunks[0], ref.Size, len(ref.Chunks)))
			})
		},
	}
}
