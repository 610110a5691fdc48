package flags

import (
	"fmt"

	"cudasys/pkg/build"
	"cudasys/pkg/config"

	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	var format string
	var pkg string

	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Print the link and include directives for the located toolkit",
		Long: `Print the directives the build would emit, without generating anything.

  cgo   a Go file carrying #cgo CFLAGS/LDFLAGS lines
  env   shell exports of CGO_CFLAGS and CGO_LDFLAGS (eval "$(cudasys flags)")
  toml  the build metadata written next to generated bindings`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			set, _, _, err := build.New(ctx, config.FromContext(ctx)).Directives(ctx)
			if err != nil {
				return err
			}

			out := c.OutOrStdout()
			switch format {
			case "env":
				return set.WriteEnv(out)
			case "cgo":
				return set.WriteCgo(out, pkg)
			case "toml":
				return set.WriteTOML(out)
			default:
				return fmt.Errorf("unknown format: %s (supported: env, cgo, toml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "env", "Output format (env, cgo, toml)")
	cmd.Flags().StringVar(&pkg, "package", "cuda", "Package name for the cgo format")
	return cmd
}
