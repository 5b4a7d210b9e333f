package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lvc",
		Short:         "Inspect lvc route tables and configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRoutesCmd(), newConfigCmd())
	return cmd
}
