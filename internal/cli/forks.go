package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewForksCommand lists the current heads of a file's commit graph.
func NewForksCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forks <path>",
		Short: "List the current heads of a file",
		Long:  "Forks prints every childless commit reachable from the file's root.\nMore than one line means concurrent writers diverged.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				heads, err := a.fs.Forks(cmd.Context(), args[0])
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}

				if a.out.Format == "json" {
					ids := make([]string, 0, len(heads))
					for _, h := range heads {
						ids = append(ids, string(h))
					}
					return a.out.OK(map[string]any{
						"path":     args[0],
						"heads":    ids,
						"diverged": len(ids) > 1,
					})
				}

				var b strings.Builder
				for _, h := range heads {
					fmt.Fprintln(&b, h)
				}
				if len(heads) > 1 {
					fmt.Fprintf(&b, "%d heads: histories have diverged\n", len(heads))
				}
				return a.out.OK(strings.TrimRight(b.String(), "\n"))
			})
		},
	}
}
