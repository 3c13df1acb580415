package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plume/internal/vfs"
)

// NewCreateCommand registers a new file at a path.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <path>",
		Short: "Register a new file",
		Long:  "Create posts a root for the path and registers it in the index.\nThe new file is empty until the first write.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				f, err := a.fs.Open(cmd.Context(), args[0], vfs.Create)
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}
				if a.out.Format == "json" {
					return a.out.OK(map[string]string{
						"path": f.Path(),
						"root": string(f.Root()),
					})
				}
				return a.out.OK(fmt.Sprintf("created %s (root %s)", f.Path(), f.Root()))
			})
		},
	}
}
