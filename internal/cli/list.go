package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/handle"
	"github.com/roach88/loadorder/internal/status"
)

// GameInfo describes a supported game.
type GameInfo struct {
	Code       uint   `json:"code"`
	Name       string `json:"name"`
	Method     string `json:"method"`
	MasterFile string `json:"master_file"`
}

// PluginInfo is one entry of the load order listing.
type PluginInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Master  bool   `json:"master"`
	Active  bool   `json:"active"`
	Ghosted bool   `json:"ghosted,omitempty"`
}

// ListResult is the JSON payload of list and of order-changing commands.
type ListResult struct {
	Game    string       `json:"game"`
	Method  string       `json:"method"`
	Plugins []PluginInfo `json:"plugins"`
}

// ActiveResult is the JSON payload of active and of activation commands.
type ActiveResult struct {
	Active []string `json:"active"`
}

// NewGamesCommand creates the games command.
func NewGamesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List supported games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []GameInfo
			var b strings.Builder
			for _, c := range game.Codes() {
				s, _ := game.Lookup(c)
				infos = append(infos, GameInfo{
					Code:       uint(c),
					Name:       s.Name,
					Method:     s.DefaultMethod.String(),
					MasterFile: s.MasterFile,
				})
				fmt.Fprintf(&b, "%d\t%s\t%s\t%s\n", uint(c), s.Name, s.DefaultMethod, s.MasterFile)
			}
			return rootOpts.formatter(cmd).Success(b.String(), infos, nil)
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the load order",
		Long: `Print the load order, one plugin per line with its index.
Active plugins are marked with '*'.

Examples:
  loadorder list --game skyrim --game-path ~/Skyrim --local-path ~/AppData/Local
  loadorder list --install skyrim --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd, f)
			if err != nil {
				return fail(f, "failed to open installation", err)
			}
			defer s.Close()
			return printList(f, s.handle, s.warnings)
		},
	}
}

// NewActiveCommand creates the active command.
func NewActiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Print the active plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd, f)
			if err != nil {
				return fail(f, "failed to open installation", err)
			}
			defer s.Close()
			return printActive(f, s.handle, s.warnings)
		},
	}
}

func listing(h *handle.Handle) (ListResult, error) {
	records, err := h.Plugins()
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{
		Game:    h.Settings().Name,
		Method:  h.Method().String(),
		Plugins: make([]PluginInfo, 0, len(records)),
	}
	for i, r := range records {
		active, err := h.IsActive(r.Name)
		if err != nil {
			return ListResult{}, err
		}
		result.Plugins = append(result.Plugins, PluginInfo{
			Index:   i,
			Name:    r.Name,
			Master:  r.Master,
			Active:  active,
			Ghosted: r.Ghosted,
		})
	}
	return result, nil
}

func printList(f *OutputFormatter, h *handle.Handle, warnings []status.Warning) error {
	result, err := listing(h)
	if err != nil {
		return fail(f, "failed to read load order", err)
	}
	var b strings.Builder
	for _, p := range result.Plugins {
		marker := " "
		if p.Active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%3d %s %s\n", p.Index, marker, p.Name)
	}
	return f.Success(b.String(), result, warnings)
}

func printActive(f *OutputFormatter, h *handle.Handle, warnings []status.Warning) error {
	active, err := h.ActivePlugins()
	if err != nil {
		return fail(f, "failed to read active plugins", err)
	}
	if active == nil {
		active = []string{}
	}
	var b strings.Builder
	for _, name := range active {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return f.Success(b.String(), ActiveResult{Active: active}, warnings)
}
