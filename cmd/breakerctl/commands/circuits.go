package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/breakercache/resilience"
)

func (c *CLI) newCircuitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "circuits",
		Aliases: []string{"circuit"},
		Short:   "Inspect and control circuits",
	}
	cmd.AddCommand(
		c.newCircuitsListCmd(),
		c.newCircuitsGetCmd(),
		c.newCircuitsOpenCmd(),
		c.newCircuitsCloseCmd(),
		c.newCircuitsClearCmd(),
	)
	return cmd
}

func (c *CLI) newCircuitsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored circuits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := c.app.Circuits().AllCircuits(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd, models)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tSTATE\tERRORS\tLIMIT\tCALLS\tLAST FAILURE")
			for i := range models {
				m := &models[i]
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					m.MethodKey, m.BreakStatus(), m.ErrorCount, m.LimitBreak, m.Calls, m.LastAttemptFailureReason)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print models as JSON")
	return cmd
}

func (c *CLI) newCircuitsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get METHOD_KEY",
		Short: "Show one circuit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.app.Circuits().Circuit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}
}

func (c *CLI) newCircuitsOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open [METHOD_KEY]",
		Short: "Force a circuit, or every circuit, Open",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			key, err := targetKey(args, all)
			if err != nil {
				return err
			}
			if all {
				n, err := c.app.Circuits().OpenAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "opened %d circuits\n", n)
				return nil
			}
			m, err := c.app.Circuits().OpenCircuit(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.MethodKey, m.BreakStatus())
			return nil
		},
	}
	cmd.Flags().BoolP("all", "a", false, "Open every stored circuit")
	return cmd
}

func (c *CLI) newCircuitsCloseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close [METHOD_KEY]",
		Short: "Move a circuit, or every Open circuit, to HalfOpen",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			key, err := targetKey(args, all)
			if err != nil {
				return err
			}
			if all {
				n, err := c.app.Circuits().CloseAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "closed %d circuits\n", n)
				return nil
			}
			m, err := c.app.Circuits().CloseCircuit(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.MethodKey, m.BreakStatus())
			return nil
		},
	}
	cmd.Flags().BoolP("all", "a", false, "Close every Open circuit")
	return cmd
}

func (c *CLI) newCircuitsClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [METHOD_KEY]",
		Short: "Delete a circuit's stored state, or every circuit's",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			key, err := targetKey(args, all)
			if err != nil {
				return err
			}
			if all {
				if err := c.app.Circuits().ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared all circuits")
				return nil
			}
			if err := c.app.Circuits().ClearCircuit(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", key)
			return nil
		},
	}
	cmd.Flags().BoolP("all", "a", false, "Clear every circuit")
	return cmd
}

var errTarget = errors.New("pass exactly one of METHOD_KEY or --all")

func targetKey(args []string, all bool) (string, error) {
	if all == (len(args) == 1) {
		return "", errTarget
	}
	if all {
		return "", nil
	}
	if args[0] == "" {
		return "", resilience.ErrEmptyMethodKey
	}
	return args[0], nil
}
