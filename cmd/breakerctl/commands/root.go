// Package commands implements the breakerctl command line.
package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/resilience"
)

// Version is set at build time.
var Version = "dev"

// Application is what the commands drive.
type Application interface {
	Serve(ctx context.Context) error
	Circuits() *resilience.Registry
	Cache() *cache.Layer
}

// CLI represents the breakerctl command line.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// New creates a CLI operating on a.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "breakerctl",
		Short:         "Operate cached circuit breakers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	c := &CLI{app: a, rootCmd: rootCmd}

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newCircuitsCmd())
	rootCmd.AddCommand(c.newCacheCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API, health probes and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Serve(cmd.Context())
		},
	}
}
