package main

import (
	"github.com/spf13/cobra"

	"github.com/vitalvas/lvc/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with configuration files",
	}

	cmd.AddCommand(newConfigDumpCmd())
	return cmd
}

func newConfigDumpCmd() *cobra.Command {
	var (
		format   string
		dispatch bool
	)

	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Print the effective configuration",
		Long:  `Prints the configuration file merged over the defaults. Without a file the defaults are printed.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := config.Default()
			if len(args) == 1 {
				var err error
				if f, err = config.Load(args[0]); err != nil {
					return err
				}
				if format == "" {
					format, _ = config.FormatFromPath(args[0])
				}
			}

			if dispatch {
				return f.MVC().Dump(cmd.OutOrStdout())
			}

			if format == "" {
				format = config.FormatTOML
			}
			return f.Encode(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: toml or yaml (default: format of the file)")
	cmd.Flags().BoolVar(&dispatch, "dispatch", false, "print the resolved dispatch settings instead")
	return cmd
}
