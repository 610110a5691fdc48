package doctor

import (
	"fmt"

	"cudasys/pkg/doctor"
	"cudasys/pkg/env"

	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Inspect the CUDA installation and report what the build would find",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			d := doctor.New()
			d.Locator.LookupEnv = env.LookupFunc(ctx)

			run := d.Run(ctx)
			report, err := doctor.Report(run)
			if err != nil {
				return err
			}
			if err := doctor.Print(c.OutOrStdout(), report, format); err != nil {
				return err
			}
			if n := doctor.Errors(run); n > 0 {
				return fmt.Errorf("%d problem(s) would stop the build", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, sarif)")
	return cmd
}
