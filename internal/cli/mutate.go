package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/loadorder/internal/handle"
	"github.com/roach88/loadorder/internal/history"
	"github.com/roach88/loadorder/internal/status"
)

// mutation runs op against an opened installation and prints the result
// with show. Warnings from opening are printed along with op's warnings.
func mutation(rootOpts *RootOptions, cmd *cobra.Command, message string,
	op func(s *session) ([]status.Warning, error),
	show func(*OutputFormatter, *handle.Handle, []status.Warning) error,
) error {
	f := rootOpts.formatter(cmd)
	s, err := rootOpts.open(cmd, f)
	if err != nil {
		return fail(f, "failed to open installation", err)
	}
	defer s.Close()

	warnings, err := op(s)
	if err != nil {
		return fail(f, message, err)
	}
	return show(f, s.handle, append(s.warnings, warnings...))
}

// NewSetOrderCommand creates the set-order command.
func NewSetOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-order <plugin>...",
		Short: "Replace the load order",
		Long: `Replace the load order with the given plugins.

Active plugins that are not listed are deactivated and reported with a
mismatch warning. Installed plugins that are not listed keep their relative
order after the listed ones.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutation(rootOpts, cmd, "failed to set load order",
				func(s *session) ([]status.Warning, error) { return s.handle.SetLoadOrder(args) },
				printList)
		},
	}
}

// NewSetActiveCommand creates the set-active command.
func NewSetActiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-active [plugin]...",
		Short: "Replace the active plugins",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutation(rootOpts, cmd, "failed to set active plugins",
				func(s *session) ([]status.Warning, error) { return s.handle.SetActivePlugins(args) },
				printActive)
		},
	}
}

// NewActivateCommand creates the activate command.
func NewActivateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <plugin>",
		Short: "Activate a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutation(rootOpts, cmd, "failed to activate "+args[0],
				func(s *session) ([]status.Warning, error) { return s.handle.Activate(args[0]) },
				printActive)
		},
	}
}

// NewDeactivateCommand creates the deactivate command.
func NewDeactivateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <plugin>",
		Short: "Deactivate a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutation(rootOpts, cmd, "failed to deactivate "+args[0],
				func(s *session) ([]status.Warning, error) { return s.handle.Deactivate(args[0]) },
				printActive)
		},
	}
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <plugin> <index>",
		Short: "Move a plugin to a load order position",
		Long: `Move a plugin to the given zero-based load order index. An index past the
end moves the plugin to the end.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fail(rootOpts.formatter(cmd), "", NewExitError(ExitCommandError, fmt.Sprintf("invalid index %q", args[1])))
			}
			return mutation(rootOpts, cmd, "failed to move "+args[0],
				func(s *session) ([]status.Warning, error) { return s.handle.MovePlugin(args[0], index) },
				printList)
		},
	}
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <entry-id>",
		Short: "Restore a load order from history",
		Long: `Restore the load order and active plugins recorded in a history entry.
Plugins that have since been uninstalled are skipped with a warning; plugins
installed since are appended. Restoring the current state writes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutation(rootOpts, cmd, "failed to restore "+args[0],
				func(s *session) ([]status.Warning, error) {
					if s.journal == nil {
						return nil, NewExitError(ExitCommandError, "history is disabled; set --history or history in the installation file")
					}
					entry, err := s.journal.Get(context.Background(), args[0])
					if err != nil {
						if errors.Is(err, history.ErrNotFound) {
							return nil, WrapExitError(ExitCommandError, "unknown history entry", err)
						}
						return nil, WrapExitError(ExitCommandError, "failed to read history", err)
					}
					if entry.Installation != s.name {
						return nil, NewExitError(ExitCommandError,
							fmt.Sprintf("history entry %s belongs to installation %q, not %q", entry.ID, entry.Installation, s.name))
					}
					order, err := s.handle.LoadOrder()
					if err != nil {
						return nil, err
					}
					active, err := s.handle.ActivePlugins()
					if err != nil {
						return nil, err
					}
					if history.StateDigest(order, active) == entry.Digest {
						s.logger.Debug("already at history entry", "id", entry.ID, "digest", history.ShortDigest(entry.Digest))
						return nil, nil
					}
					return s.handle.SetState(entry.LoadOrder, entry.Active)
				},
				printList)
		},
	}
}
