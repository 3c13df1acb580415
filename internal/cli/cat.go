package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/plume/internal/dag"
	"github.com/roach88/plume/internal/vfs"
)

// NewCatCommand prints file content.
func NewCatCommand(opts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print the content of a file",
		Long:  "Cat prints the content at the file's current head, or at a specific\nhistoric commit when --at is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				var content []byte
				var commit dag.PostID

				if at != "" {
					var err error
					content, err = a.fs.ReadVersion(cmd.Context(), args[0], dag.PostID(at))
					if err != nil {
						return a.out.Fail(ExitFailure, err)
					}
					commit = dag.PostID(at)
				} else {
					f, err := a.fs.Open(cmd.Context(), args[0], vfs.ReadOnly)
					if err != nil {
						return a.out.Fail(ExitFailure, err)
					}
					content, err = f.Read(cmd.Context())
					if err != nil {
						return a.out.Fail(ExitFailure, err)
					}
					commit = f.Head()
				}

				if a.out.Format == "json" {
					return a.out.OK(map[string]any{
						"path":    args[0],
						"commit":  string(commit),
						"size":    len(content),
						"content": content,
					})
				}
				_, err := a.out.Writer.Write(content)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "read a specific commit instead of the head")
	return cmd
}
