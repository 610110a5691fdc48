package locate

import (
	"fmt"
	"text/tabwriter"

	"cudasys/pkg/directive"
	"cudasys/pkg/locate"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
)

func init() {
	Registry.Register(func(parent *cobra.Command) {
		var pick bool
		cmd := &cobra.Command{
			Use:   "all",
			Short: "List every toolkit root reachable from the environment and the conventional locations",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				roots := locator(c).Roots(c.Context())
				if len(roots) == 0 {
					return locate.ErrNotFound
				}

				versions := make([]string, len(roots))
				for i, root := range roots {
					versions[i] = "unknown"
					if v := locate.Version(root); !v.IsUnknown() {
						versions[i] = v.Normalized()
					}
				}

				if !pick {
					w := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ROOT\tVERSION")
					for i, root := range roots {
						fmt.Fprintf(w, "%s\t%s\n", root, versions[i])
					}
					return w.Flush()
				}

				idx, err := fuzzyfinder.Find(
					roots,
					func(i int) string {
						return roots[i] + " (" + versions[i] + ")"
					},
					fuzzyfinder.WithPromptString("cuda> "),
				)
				if err != nil {
					if err == fuzzyfinder.ErrAbort {
						return nil
					}
					return fmt.Errorf("fuzzy finder failed: %w", err)
				}

				fmt.Fprintf(c.OutOrStdout(), "export CUDA_PATH=%s\n", directive.QuoteShell(roots[idx]))
				return nil
			},
		}
		cmd.Flags().BoolVar(&pick, "pick", false, "Pick a root interactively and print an export line for it")
		parent.AddCommand(cmd)
	})
}
