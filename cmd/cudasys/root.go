package main

import (
	"context"
	"log/slog"
	"os"

	"cudasys/pkg/config"
	_ "cudasys/pkg/driver/prelude"
	"cudasys/pkg/registry"
	"cudasys/pkg/version"

	"github.com/spf13/cobra"
)

var Registry registry.CommandRegistry

func main() {
	var verbose bool
	var configPath string

	cmd := &cobra.Command{
		Use:           "cudasys",
		Short:         "cudasys - locate the CUDA toolkit and generate cgo bindings for it",
		Version:       version.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// Weights must be set before any driver is selected
			cfg.Apply()
			c.SetContext(config.WithContext(c.Context(), cfg))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (or set CUDASYS_CONFIG, default ./cudasys.toml)")
	Registry.FillCommands(cmd)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("error", "err", err)
		os.Exit(1)
	}
}
