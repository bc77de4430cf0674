package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config    string
	Install   string
	Game      string
	GamePath  string
	LocalPath string
	Method    string
	MaxActive int
	History   string
	Verbose   bool
	Format    string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the loadorder CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loadorder",
		Short: "Manage plugin load order for Bethesda games",
		Long: `Read and change the load order and active plugins of Morrowind, Oblivion,
Skyrim, Fallout 3 and Fallout: New Vegas installations.

An installation is given with --game and --game-path (plus --local-path for
games that keep plugins.txt in local application data), or by name from an
installation file (--config, --install).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.Config, "config", "", "installation file (.yaml or .cue)")
	f.StringVar(&opts.Install, "install", "", "installation name from the installation file")
	f.StringVar(&opts.Game, "game", "", "game: morrowind, oblivion, skyrim, fallout3 or falloutnv")
	f.StringVar(&opts.GamePath, "game-path", "", "game install directory")
	f.StringVar(&opts.LocalPath, "local-path", "", "local application data directory")
	f.StringVar(&opts.Method, "method", "", "load order method override (timestamp|textfile)")
	f.IntVar(&opts.MaxActive, "max-active", 0, "active plugin ceiling override")
	f.StringVar(&opts.History, "history", "", "history database path (empty disables journaling)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	f.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewGamesCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewActiveCommand(opts))
	cmd.AddCommand(NewSetOrderCommand(opts))
	cmd.AddCommand(NewSetActiveCommand(opts))
	cmd.AddCommand(NewActivateCommand(opts))
	cmd.AddCommand(NewDeactivateCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
