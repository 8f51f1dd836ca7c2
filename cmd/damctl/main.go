package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command line, then writes the metrics of the run even if the command failed.
func run(ctx context.Context, args []string) error {
	a := newApp()
	root := newRootCommand(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if metricsErr := a.writeMetrics(); metricsErr != nil {
		a.logger.Warnf("%s", metricsErr)
	}
	return err
}
