package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/plume/internal/vfs"
)

// historyEntry is one commit in JSON history output.
type historyEntry struct {
	Commit    string   `json:"commit"`
	Parents   []string `json:"parents,omitempty"`
	Timestamp string   `json:"timestamp"`
	Author    string   `json:"author,omitempty"`
	Size      int      `json:"size"`
	Kind      string   `json:"kind"` // "root", "write", "tombstone"
}

// NewHistoryCommand lists every version of a file.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <path>",
		Short: "List the versions of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(a *app) error {
				commits, err := a.fs.History(cmd.Context(), args[0])
				if err != nil {
					return a.out.Fail(ExitFailure, err)
				}

				if a.out.Format == "json" {
					entries := make([]historyEntry, 0, len(commits))
					for _, c := range commits {
						parents := make([]string, 0, len(c.Parents))
						for _, p := range c.Parents {
							parents = append(parents, string(p))
						}
						entries = append(entries, historyEntry{
							Commit:    string(c.ID),
							Parents:   parents,
							Timestamp: c.Timestamp.UTC().Format(time.RFC3339),
							Author:    c.Author,
							Size:      c.Size,
							Kind:      commitKind(c.IsRoot(), c.Mime),
						})
					}
					return a.out.OK(map[string]any{"path": args[0], "commits": entries})
				}

				var b strings.Builder
				for _, c := range commits {
					fmt.Fprintf(&b, "%-12s %s %6d  %s\n",
						c.ID,
						c.Timestamp.UTC().Format(time.RFC3339),
						c.Size,
						commitKind(c.IsRoot(), c.Mime))
				}
				return a.out.OK(strings.TrimRight(b.String(), "\n"))
			})
		},
	}
}

func commitKind(isRoot bool, mime string) string {
	switch {
	case isRoot:
		return "root"
	case mime == vfs.TombstoneMime:
		return "tombstone"
	default:
		return "write"
	}
}
