package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loadorder/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded load orders",
		Long: `List the load orders committed for the installation, oldest first.
Each line shows the entry ID to pass to restore.

Examples:
  loadorder history --install skyrim --history ~/.loadorder/history.db
  loadorder history --install skyrim --limit 5 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "show only the newest N entries (0 for all)")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return fail(f, "", err)
	}
	name, _, err := opts.installation(cfg)
	if err != nil {
		return fail(f, "", err)
	}
	journal, err := opts.openJournal(cfg)
	if err != nil {
		return fail(f, "", err)
	}
	if journal == nil {
		return fail(f, "", NewExitError(ExitCommandError, "history is disabled; set --history or history in the installation file"))
	}
	defer journal.Close()

	entries, err := journal.List(context.Background(), name, opts.Limit)
	if err != nil {
		return fail(f, "", WrapExitError(ExitCommandError, "failed to read history", err))
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s  %s  %-18s %d plugins, %d active\n",
			e.ID, e.RecordedAt.Format(time.RFC3339), history.ShortDigest(e.Digest), e.Operation, len(e.LoadOrder), len(e.Active))
	}
	if len(entries) == 0 {
		b.WriteString("no history\n")
	}
	return f.Success(b.String(), struct {
		Installation string          `json:"installation"`
		Entries      []history.Entry `json:"entries"`
	}{name, entries}, nil)
}
