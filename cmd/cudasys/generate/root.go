package generate

import (
	"fmt"
	"log/slog"
	"os"

	"cudasys/pkg/build"
	"cudasys/pkg/config"
	"cudasys/pkg/target"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func GetCommand() *cobra.Command {
	var opts build.Options
	var quiet bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Locate the toolkit and generate cgo bindings for it",
		Long: fmt.Sprintf(`Locate the toolkit, emit its link and include directives, and generate one
bindings package per target into the output directory.

Known targets: %v`, target.Names()),
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			if !quiet && term.IsTerminal(int(os.Stderr.Fd())) {
				opts.Progress = os.Stderr
			}

			report, err := build.New(ctx, config.FromContext(ctx)).Run(ctx, opts)
			if err != nil {
				return err
			}

			slog.Info("bindings ready",
				"root", report.Root,
				"out", report.OutDir,
				"generated", report.Generated(),
				"up_to_date", len(report.Targets)-report.Generated())
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "Output directory (default from config, CUDASYS_OUT_DIR or ./sys)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Regenerate targets even when their stamp is fresh")
	cmd.Flags().StringSliceVarP(&opts.Targets, "target", "t", nil, "Targets to generate (default from config, or driver,runtime,sanitizer)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show a progress bar")
	return cmd
}
