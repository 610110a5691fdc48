package registry

import (
	"sync"

	"github.com/spf13/cobra"
)

// CommandRegistry collects subcommands from init functions so a parent
// command can be assembled without importing every child explicitly.
// The zero value is ready to use.
type CommandRegistry struct {
	mu    sync.Mutex
	hooks []func(*cobra.Command)
}

// Register adds a hook that attaches commands to the parent.
func (r *CommandRegistry) Register(hook func(*cobra.Command)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// FromGetter registers the command built by getter as a child.
func (r *CommandRegistry) FromGetter(getter func() *cobra.Command) {
	r.Register(func(parent *cobra.Command) {
		parent.AddCommand(getter())
	})
}

// FillCommands runs every hook against cmd, in registration order.
func (r *CommandRegistry) FillCommands(cmd *cobra.Command) *cobra.Command {
	r.mu.Lock()
	hooks := append([]func(*cobra.Command){}, r.hooks...)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(cmd)
	}
	return cmd
}

// GetCommand is FillCommands for command groups.
func (r *CommandRegistry) GetCommand(cmd *cobra.Command) *cobra.Command {
	return r.FillCommands(cmd)
}
