package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExistsCommand reports whether a path is registered.
func NewExistsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <path>",
		Short: "Check whether a file is registered",
		Long:  "Exists prints true or false and exits 0 or 1. Tombstoned files\nstill exist; deletion is part of the history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				ok, err := a.fs.Exists(cmd.Context(), args[0])
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}

				if a.out.Format == "json" {
					if err := a.out.OK(map[string]bool{"exists": ok}); err != nil {
						return err
					}
				} else if err := a.out.OK(fmt.Sprintf("%t", ok)); err != nil {
					return err
				}

				if !ok {
					return &ExitError{Code: ExitFailure, Message: "file not found"}
				}
				return nil
			})
		},
	}
}
