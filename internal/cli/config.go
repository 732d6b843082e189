package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/pkg/config"
)

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), c.config.String())
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a config file without running anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			printSuccess("%s is valid", args[0])
			return nil
		},
	})

	return cmd
}
