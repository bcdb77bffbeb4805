package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and flush the shared cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print per-node store counters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				stats, err := c.app.Cache().Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			},
		},
		&cobra.Command{
			Use:   "flush",
			Short: "Remove every entry, circuits included",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := c.app.Cache().FlushAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache flushed")
				return nil
			},
		},
	)
	return cmd
}
