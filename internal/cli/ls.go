package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewLsCommand lists registered files.
func NewLsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List registered files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				prefix := ""
				if len(args) == 1 {
					prefix = args[0]
				}

				paths, err := a.fs.List(cmd.Context(), prefix)
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}

				if a.out.Format == "json" {
					return a.out.OK(map[string]any{"files": paths})
				}
				if len(paths) == 0 {
					return nil
				}
				return a.out.OK(strings.Join(paths, "\n"))
			})
		},
	}
}
