package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plume/internal/vfs"
)

// NewRmCommand tombstones a file.
func NewRmCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file",
		Long:  "Rm commits a tombstone on top of the current head. The thread and\nits history remain; a later write revives the file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				f, err := a.fs.Open(cmd.Context(), args[0], vfs.ReadWrite)
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}
				if err := f.Delete(cmd.Context()); err != nil {
					return a.out.Fail(ExitFailure, err)
				}

				if a.out.Format == "json" {
					return a.out.OK(map[string]string{
						"path":      f.Path(),
						"tombstone": string(f.Head()),
					})
				}
				return a.out.OK(fmt.Sprintf("deleted %s (tombstone %s)", f.Path(), f.Head()))
			})
		},
	}
}
