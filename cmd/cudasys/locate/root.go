package locate

import (
	"cudasys/pkg/registry"

	"github.com/spf13/cobra"
)

var Registry registry.CommandRegistry

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find the CUDA toolkit on this host",
	}
	return Registry.FillCommands(cmd)
}
