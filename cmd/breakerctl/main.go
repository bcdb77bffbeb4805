// Command breakerctl serves and operates cached circuit breakers.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/breakercache/cmd/breakerctl/commands"
	"github.com/jonwraymond/breakercache/config"
	"github.com/jonwraymond/breakercache/internal/app"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env, err := config.LoadEnv()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	a, err := app.New(ctx, env)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		}
	}()

	cli := commands.New(a)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	return 0
}
