package locate

import (
	"fmt"

	"cudasys/pkg/env"
	"cudasys/pkg/locate"

	"github.com/spf13/cobra"
)

func locator(c *cobra.Command) *locate.Locator {
	l := locate.New()
	l.LookupEnv = env.LookupFunc(c.Context())
	return l
}

func init() {
	Registry.FromGetter(func() *cobra.Command {
		return &cobra.Command{
			Use:   "root",
			Short: "Print the toolkit root (the directory holding include/cuda.h)",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				root, err := locator(c).Root(c.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(c.OutOrStdout(), root)
				return nil
			},
		}
	})

	Registry.FromGetter(func() *cobra.Command {
		var includes bool
		cmd := &cobra.Command{
			Use:   "libs",
			Short: "Print the library search directories, in linker order",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				l := locator(c)
				var found []string
				l.OnInclude = func(dir string) { found = append(found, dir) }

				dirs, err := l.LibraryDirs(c.Context())
				if err != nil {
					return err
				}
				for _, dir := range dirs {
					fmt.Fprintln(c.OutOrStdout(), dir)
				}
				if includes {
					for _, dir := range found {
						fmt.Fprintln(c.OutOrStdout(), dir)
					}
				}
				return nil
			},
		}
		cmd.Flags().BoolVar(&includes, "includes", false, "Also print include directories found along the way")
		return cmd
	})
}
