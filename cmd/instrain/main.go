package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/liupfskygre/inStrain/internal/envgate"
	"github.com/liupfskygre/inStrain/internal/pipeline"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitEnvironment = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, runtime.Version(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is the whole program behind main, factored so tests can drive it
// with their own arguments and writers.
func run(ctx context.Context, goVersion string, args []string, stdout, stderr io.Writer) int {
	// The runtime gate comes before any argument handling. A broken
	// environment reports itself instead of surfacing as a confusing
	// failure somewhere inside a command.
	if err := envgate.Check(goVersion); err != nil {
		fmt.Fprintln(stderr, envgate.Banner(err))
		return exitEnvironment
	}

	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		if _, ok := pipeline.AsFailure(err); ok {
			return exitFailure
		}
		return exitUsage
	}
	return exitOK
}
