package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

var verbose bool

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deconv",
		Short: "Transposed 2-D convolution kernels",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(verbose bool) {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("deconv %s\n", version)
		},
	}
}
