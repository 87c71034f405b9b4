package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/superbuild/internal/cli"
)

// main is the entrypoint for the superbuild application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// run encapsulates the main application logic for easier testing.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	return cli.Run(ctx, args, outW, errW)
}

// exitCode reports err on errW and returns the process exit code.
func exitCode(err error, errW io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(errW, exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintln(errW, err)
	return 1
}
