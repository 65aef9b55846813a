package cli

import (
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	debug      bool
}

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "schedule-service",
		Short:        "Busy and free time slots over an upstream schedule",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "debug logging and detailed error responses")

	cmd.AddCommand(
		serveCmd(opts),
		busyCmd(opts),
		freeCmd(opts),
		checkCmd(opts),
		findCmd(opts),
		gapCmd(opts),
	)
	return cmd
}
