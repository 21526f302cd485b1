package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tanaylab/mcbrowse/internal/cli"
	mcerrors "github.com/tanaylab/mcbrowse/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		if stage := mcerrors.StageOf(err); stage != "" {
			fmt.Fprintf(os.Stderr, "Error (%s): %s\n", stage, mcerrors.UserMessage(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", mcerrors.UserMessage(err))
		}
		os.Exit(1)
	}
}
