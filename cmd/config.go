package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"yapa-server/config"
)

func configCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and check animation configs",
	}
	cmd.AddCommand(configPrintCmd(opts), configCheckCmd())
	return cmd
}

func configPrintCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective config",
		Long:  "Print the defaults merged with --config, in toml, yaml or json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			data, err := config.Encode(cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "Output format (toml, yaml, json)")
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				Bad.Fprintf(cmd.OutOrStdout(), "  %s is invalid\n", args[0])
				return fmt.Errorf("invalid config: %w", err)
			}
			Good.Fprintf(cmd.OutOrStdout(), "  %s is valid\n", args[0])
			return nil
		},
	}
}
