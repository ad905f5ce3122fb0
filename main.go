package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/motionsort/cmd"
	"github.com/tphakala/motionsort/internal/app"
	"github.com/tphakala/motionsort/internal/buildinfo"
	"github.com/tphakala/motionsort/internal/conf"
	"github.com/tphakala/motionsort/internal/detector"
	"github.com/tphakala/motionsort/internal/errors"
)

// buildDate and version are set at build time with -ldflags
var (
	buildDate string
	version   string
)

const (
	exitOK     = 0
	exitFailed = 1
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	// register defaults before commands read them as flag defaults
	conf.SetDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(buildinfo.NewContext(version, buildDate))
	defer a.Close()

	rootCmd := cmd.RootCommand(a)
	err := rootCmd.ExecuteContext(ctx)
	return exitCode(err)
}

// exitCode maps a command error to the process exit status and reports it.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, detector.ErrDetectorFailed) {
		fmt.Fprintln(os.Stderr, "Pending captures were left in place for the next run.")
	}
	return exitFailed
}
