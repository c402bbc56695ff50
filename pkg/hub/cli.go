package hub

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// BuildCLI assembles a dispatchable cobra.Command tree from the command
// dimension of the registry (spec.md §6: "decorator-style registration
// associates a handler with a dotted command name"). Grounded on
// ipiton-alert-history-service's migrations.CLI.GetRootCommand (one root,
// AddCommand per registered operation), generalized from a fixed migration
// command set to registry-driven dotted-name group construction.
func (h *Hub) BuildCLI(name, version string) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:     name,
		Version: version,
		Short:   fmt.Sprintf("%s command line", name),
	}
	root.AddCommand(h.diagCommand())

	for _, entry := range h.registry.List(dimensionCommand) {
		handler, ok := entry.Value.(CommandHandler)
		if !ok {
			continue
		}
		if err := attachCommand(root, entry.Name, handler); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// attachCommand walks/creates the group commands implied by name's dotted
// segments and attaches a leaf RunE that dispatches to handler.
func attachCommand(root *cobra.Command, name string, handler CommandHandler) error {
	segments := strings.Split(name, ".")
	if len(segments) == 0 || segments[0] == "" {
		return fmt.Errorf("empty command name")
	}
	cur := root
	for i, seg := range segments {
		leaf := i == len(segments)-1
		child := findSubcommand(cur, seg)
		if child == nil {
			child = &cobra.Command{Use: seg}
			if leaf {
				child.Short = "registered command " + name
				child.RunE = func(_ *cobra.Command, args []string) error {
					return handler(args)
				}
			}
			cur.AddCommand(child)
		}
		cur = child
	}
	return nil
}

func findSubcommand(parent *cobra.Command, use string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == use {
			return c
		}
	}
	return nil
}

// diagCommand is the Hub's built-in diagnostics command. It bypasses
// RegisterCommand deliberately: the Hub's own diagnostics must remain
// reachable even when Initialize itself is mid-failure, and routing them
// through the command registry would make them depend on the very
// initialization they exist to help debug.
func (h *Hub) diagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "foundation.diag",
		Short: "print hub diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			h.mu.RLock()
			defer h.mu.RUnlock()
			fmt.Fprintf(cmd.OutOrStdout(), "initialized: %v\n", h.initialized)
			fmt.Fprintf(cmd.OutOrStdout(), "go runtime: %s\n", runtime.Version())
			if h.context != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "instance_id: %s\n", h.context.InstanceID)
				fmt.Fprintf(cmd.OutOrStdout(), "service_name: %s\n", h.context.ServiceName)
				fmt.Fprintf(cmd.OutOrStdout(), "environment: %s\n", h.context.Environment)
				fmt.Fprintf(cmd.OutOrStdout(), "default_level: %s\n", h.context.DefaultLevel)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered commands: %d\n", len(h.registry.List(dimensionCommand)))
			return nil
		},
	}
}
